package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
)

// Handler executes one command against JSON-encoded arguments.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Registry dispatches named commands. Arguments and results cross the
// boundary as JSON so callers only depend on names and payload shapes.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{handlers: make(map[string]Handler), logger: logger}
}

// Register binds a handler to a name, replacing any previous binding.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names lists registered commands in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke marshals args, runs the command and decodes its result into out.
// out may be nil when the caller ignores the result.
func (r *Registry) Invoke(ctx context.Context, name string, args interface{}, out interface{}) error {
	var raw json.RawMessage
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "arguments are not serialisable")
		}
		raw = encoded
	}

	result, err := r.InvokeRaw(ctx, name, raw)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrRemoteCall.Code, appErrors.ErrRemoteCall.Status, fmt.Sprintf("decode %s result", name))
	}
	return nil
}

// InvokeRaw runs a command with raw JSON arguments and returns the raw JSON result.
func (r *Registry) InvokeRaw(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownCommand, fmt.Sprintf("unknown command %q", name))
	}

	result, err := h(ctx, args)
	if err != nil {
		r.logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		return nil, err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("encode %s result", name))
	}
	return encoded, nil
}

// decodeArgs unmarshals raw into dst. Empty and null payloads leave dst zeroed.
func decodeArgs(raw json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed command arguments")
	}
	return nil
}

// requireID rejects blank identifiers before they reach storage.
func requireID(field, value string) error {
	if value == "" {
		return appErrors.Clone(appErrors.ErrValidation, field+" is required")
	}
	return nil
}
