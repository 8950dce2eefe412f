package parallel

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DeferredLog buffers log messages produced on worker threads inside a
// parallel region. Workers must not touch the embedding host runtime (or any
// blocking sink) directly; they append entries under the process-wide mutex
// and the master thread flushes them after the region ends.
type DeferredLog struct {
	mu      sync.Mutex
	entries []deferredEntry
}

type deferredEntry struct {
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

// Warn buffers a warning message. Safe to call from any worker.
func (d *DeferredLog) Warn(msg string, fields ...zap.Field) {
	d.append(zapcore.WarnLevel, msg, fields)
}

// Info buffers an info message. Safe to call from any worker.
func (d *DeferredLog) Info(msg string, fields ...zap.Field) {
	d.append(zapcore.InfoLevel, msg, fields)
}

func (d *DeferredLog) append(level zapcore.Level, msg string, fields []zap.Field) {
	d.mu.Lock()
	d.entries = append(d.entries, deferredEntry{level: level, msg: msg, fields: fields})
	d.mu.Unlock()
}

// Flush emits the buffered messages through the logger in arrival order and
// clears the buffer. Must be called by the master thread outside the region.
func (d *DeferredLog) Flush(logger *zap.Logger) {
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		if ce := logger.Check(e.level, e.msg); ce != nil {
			ce.Write(e.fields...)
		}
	}
}

// Len returns the number of buffered messages.
func (d *DeferredLog) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
