package pipeline

import (
	"context"
	"sync/atomic"
)

type mockKey struct{}

// WithMockMode forces mock (true) or live (false) providers for runs that
// use ctx, regardless of the process default.
func WithMockMode(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, mockKey{}, enabled)
}

// ModeSwitch holds the process-wide mock default.
type ModeSwitch struct {
	mock atomic.Bool
}

func NewModeSwitch(mock bool) *ModeSwitch {
	m := &ModeSwitch{}
	m.mock.Store(mock)
	return m
}

func (m *ModeSwitch) Default() bool { return m.mock.Load() }

func (m *ModeSwitch) SetDefault(enabled bool) { m.mock.Store(enabled) }

// Mock reports the mode for one run: a context override wins over the
// process default.
func (m *ModeSwitch) Mock(ctx context.Context) bool {
	if v, ok := ctx.Value(mockKey{}).(bool); ok {
		return v
	}
	return m.Default()
}

func modeLabel(mock bool) string {
	if mock {
		return "mock"
	}
	return "live"
}
