package llmcall

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Log receives recorded calls. A nil Log means debug recording is off.
// Implementations must be safe for concurrent use; fan-out generators record
// from many goroutines.
type Log interface {
	Record(call *Call)
}

// Buffer is an in-memory append-only Log, one per request.
type Buffer struct {
	mu    sync.Mutex
	calls []Call
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Record appends a call.
func (b *Buffer) Record(call *Call) {
	if call == nil {
		return
	}
	b.mu.Lock()
	b.calls = append(b.calls, *call)
	b.mu.Unlock()
}

// Calls returns a copy of the recorded calls in append order.
func (b *Buffer) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Prompts returns the recorded prompts in append order.
func (b *Buffer) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.Prompt
	}
	return out
}

// Appender persists a call. store.Collection[Call] satisfies it.
type Appender interface {
	Put(ctx context.Context, call Call) error
}

// Sink writes calls to persistent storage. Write failures are logged and
// never reach the caller.
type Sink struct {
	store   Appender
	timeout time.Duration
	logger  *slog.Logger
}

// NewSink creates a persistent log.
func NewSink(store Appender, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{store: store, timeout: 5 * time.Second, logger: logger}
}

// Record persists a call.
func (s *Sink) Record(call *Call) {
	if s == nil || s.store == nil || call == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Put(ctx, *call); err != nil {
		s.logger.Warn("failed to persist llm call", "id", call.ID, "driver", call.Driver, "error", err)
	}
}

type tee []Log

func (t tee) Record(call *Call) {
	for _, l := range t {
		l.Record(call)
	}
}

// Tee fans one call out to several logs, skipping nil ones. It returns nil
// when no log remains.
func Tee(logs ...Log) Log {
	var out tee
	for _, l := range logs {
		if l == nil {
			continue
		}
		if s, ok := l.(*Sink); ok && s == nil {
			continue
		}
		if b, ok := l.(*Buffer); ok && b == nil {
			continue
		}
		out = append(out, l)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// Filter selects calls when listing the persisted debug log.
type Filter struct {
	BatchID  string
	Driver   string
	Provider string
	After    *time.Time
	Success  *bool
	Limit    int
}

// Apply returns the calls matching f, newest first.
func (f Filter) Apply(calls []Call) []Call {
	out := make([]Call, 0, len(calls))
	for i := len(calls) - 1; i >= 0; i-- {
		c := calls[i]
		if f.BatchID != "" && c.BatchID != f.BatchID {
			continue
		}
		if f.Driver != "" && c.Driver != f.Driver {
			continue
		}
		if f.Provider != "" && c.Provider != f.Provider {
			continue
		}
		if f.After != nil && !c.Timestamp.After(*f.After) {
			continue
		}
		if f.Success != nil && c.Success != *f.Success {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}
