package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder-api/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

// Service loads and persists the settings document through a KVStore.
type Service struct {
	store     KVStore
	key       string
	defaults  Settings
	validator *validator.Validate
	logger    *zap.Logger

	mu sync.Mutex
}

// NewService constructs a settings service.
func NewService(store KVStore, key string, defaults Settings, validate *validator.Validate, logger *zap.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = "settings"
	}
	return &Service{store: store, key: key, defaults: defaults, validator: validate, logger: logger}
}

// Defaults returns the factory settings.
func (s *Service) Defaults() Settings {
	return s.defaults
}

// Load returns the stored settings with missing fields taken from the
// defaults. A stored document that no longer decodes or validates is
// ignored in favour of the defaults.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return s.defaults, nil
		}
		return Settings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	loaded, err := s.decode(raw, s.defaults)
	if err != nil {
		s.logger.Warn("stored settings rejected, using defaults", zap.Error(err))
		return s.defaults, nil
	}
	return loaded, nil
}

// Save validates and stores a complete settings document.
func (s *Service) Save(ctx context.Context, value Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, value)
}

// Update merges a partial JSON document onto the current settings. Unknown
// sections or keys are rejected.
func (s *Service) Update(ctx context.Context, patch []byte) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	merged, err := s.decode(patch, current)
	if err != nil {
		return Settings{}, err
	}
	return s.save(ctx, merged)
}

// Reset drops stored settings and returns the defaults.
func (s *Service) Reset(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, s.key); err != nil {
		return Settings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset settings")
	}
	s.logger.Info("settings reset to defaults")
	return s.defaults, nil
}

func (s *Service) save(ctx context.Context, value Settings) (Settings, error) {
	if err := s.validator.Struct(value); err != nil {
		return Settings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return Settings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode settings")
	}
	if err := s.store.Set(ctx, s.key, raw); err != nil {
		return Settings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	return value, nil
}

// decode applies raw onto base. Nested objects merge field by field.
func (s *Service) decode(raw []byte, base Settings) (Settings, error) {
	out := base
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Settings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Settings{}, appErrors.Clone(appErrors.ErrValidation, "invalid settings payload: trailing data")
	}
	if err := s.validator.Struct(out); err != nil {
		return Settings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid settings: %v", err))
	}
	return out, nil
}
