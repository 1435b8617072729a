package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

const defaultInboxCapacity = 50

// NotificationCenter is the in-app inbox. Entries are kept newest first and
// the oldest are dropped once capacity is reached.
type NotificationCenter struct {
	mu       sync.RWMutex
	items    []models.Notification
	capacity int
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotificationCenter constructs an empty inbox.
func NewNotificationCenter(capacity int, logger *zap.Logger) *NotificationCenter {
	if capacity <= 0 {
		capacity = defaultInboxCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationCenter{capacity: capacity, logger: logger, now: time.Now}
}

// Add stores a notification as unread and returns the stored copy.
func (c *NotificationCenter) Add(n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = c.now().UTC()
	}
	n.Read = false

	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.Notification, 0, len(c.items)+1)
	items = append(items, n)
	items = append(items, c.items...)
	if len(items) > c.capacity {
		c.logger.Debug("notification inbox trimmed", zap.Int("dropped", len(items)-c.capacity))
		items = items[:c.capacity]
	}
	c.items = items
	return n
}

// List returns a snapshot of the inbox.
func (c *NotificationCenter) List() []models.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// UnreadCount returns the number of unread entries.
func (c *NotificationCenter) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := 0
	for _, n := range c.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one entry as read.
func (c *NotificationCenter) MarkRead(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Read = true
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
}

// MarkAllRead flags every entry as read.
func (c *NotificationCenter) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Read = true
	}
}

// Clear removes one entry.
func (c *NotificationCenter) Clear(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
}

// ClearAll empties the inbox.
func (c *NotificationCenter) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
