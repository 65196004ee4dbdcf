package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Hook is one named teardown step.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Manager coordinates graceful teardown. Hooks run in reverse registration
// order, so resources stop in the opposite order they started: servers first,
// then the pools they depend on.
type Manager struct {
	mu      sync.Mutex
	hooks   []Hook
	timeout time.Duration
	logger  *zap.Logger
}

// NewManager creates a manager with the given overall teardown timeout.
func NewManager(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a teardown hook. Safe to call from init goroutines.
func (m *Manager) Register(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, Hook{Name: name, Fn: fn})
}

// Wait blocks until SIGINT or SIGTERM, then runs all hooks.
func (m *Manager) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	m.Shutdown()
}

// Shutdown runs all registered hooks in reverse order under one shared
// deadline. A failing hook is logged and the rest still run.
func (m *Manager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	hooks := make([]Hook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.Fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed",
				zap.String("hook", h.Name),
				zap.Error(err),
			)
			continue
		}
		m.logger.Debug("shutdown hook completed", zap.String("hook", h.Name))
	}
}
