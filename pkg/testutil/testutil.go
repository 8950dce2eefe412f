// Package testutil provides testing utilities for Tabular
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/tabular/pkg/config"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// TestConfig returns an engine configuration suitable for tests: a small
// fixed thread count so parallel paths are exercised deterministically, a
// low per-thread row threshold so even tiny inputs split across workers,
// and a logger wired to the test output.
func TestConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.NumThreads = 4
	cfg.MinRowsPerThread = 2
	cfg.Logger = zaptest.NewLogger(t)
	return cfg
}

// SerialConfig returns a single-threaded configuration for tests that need
// deterministic sequential execution.
func SerialConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.NumThreads = 1
	cfg.Logger = zaptest.NewLogger(t)
	return cfg
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
