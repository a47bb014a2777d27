package logging

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry represents a log entry delivered to a sink.
type Entry struct {
	Timestamp time.Time
	Level     string
	Component string
	Message   string
	Fields    map[string]string
}

// Sink receives log entries for async persistence.
type Sink interface {
	// Write queues a log entry. Must never block the caller.
	Write(entry Entry)
	// Flush blocks until all queued entries are written.
	Flush(ctx context.Context) error
	// Close shuts down the sink gracefully, draining queued entries.
	Close() error
}

// FileSink appends formatted log entries to a file, typically the
// per-session log under the data directory. Writes are buffered and
// performed by a background goroutine so logging never stalls the
// session monitor or the audio callback path.
type FileSink struct {
	file         *os.File
	entryChan    chan Entry
	flushChan    chan chan error
	flushTicker  *time.Ticker
	flushTimeout time.Duration
	wg           sync.WaitGroup
	done         chan struct{}
	mu           sync.Mutex
	closed       bool
}

// FileSinkConfig configures a FileSink.
type FileSinkConfig struct {
	// Path is the log file location; the file is created or appended to.
	Path string
	// BufferSize is the channel capacity (default: 256).
	BufferSize int
	// FlushInterval is how often buffered entries are synced (default: 2s).
	FlushInterval time.Duration
}

// NewFileSink opens (or creates) the log file and starts the writer
// goroutine.
func NewFileSink(cfg FileSinkConfig) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file sink requires a path")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	sink := &FileSink{
		file:         f,
		entryChan:    make(chan Entry, cfg.BufferSize),
		flushChan:    make(chan chan error),
		flushTicker:  time.NewTicker(cfg.FlushInterval),
		flushTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}

	sink.wg.Add(1)
	go sink.run()

	return sink, nil
}

// Write queues a log entry. If the buffer is full the entry is dropped;
// losing a session log line is preferable to stalling the session.
func (s *FileSink) Write(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.entryChan <- entry:
	default:
		fmt.Fprintf(os.Stderr, "[FileSink] buffer full, dropping entry: %s\n", entry.Message)
	}
}

// Flush blocks until all queued entries are written.
func (s *FileSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	select {
	case s.flushChan <- errChan:
		select {
		case err := <-errChan:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.flushTimeout):
			return fmt.Errorf("flush timeout after %v", s.flushTimeout)
		}
	case <-time.After(100 * time.Millisecond):
		// Writer is busy; it will pick the entries up on its next cycle.
		return nil
	}
}

// Close drains queued entries and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.flushTicker.Stop()
	s.wg.Wait()

	return s.file.Close()
}

func (s *FileSink) run() {
	defer s.wg.Done()

	var pending []Entry

	write := func() error {
		if len(pending) == 0 {
			return nil
		}
		var sb strings.Builder
		for _, e := range pending {
			sb.WriteString(formatEntry(e))
			sb.WriteByte('\n')
		}
		pending = pending[:0]
		if _, err := s.file.WriteString(sb.String()); err != nil {
			fmt.Fprintf(os.Stderr, "[FileSink] write failed: %v\n", err)
			return err
		}
		return s.file.Sync()
	}

	drain := func() {
		for {
			select {
			case entry := <-s.entryChan:
				pending = append(pending, entry)
			default:
				write()
				return
			}
		}
	}

	for {
		select {
		case entry := <-s.entryChan:
			pending = append(pending, entry)
		case <-s.flushTicker.C:
			write()
		case errChan := <-s.flushChan:
			errChan <- write()
		case <-s.done:
			drain()
			return
		}
	}
}

// formatEntry renders one entry as a single log line with stable field
// ordering.
func formatEntry(e Entry) string {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(e.Level))
	sb.WriteString("] ")
	sb.WriteString(e.Component)
	sb.WriteString(": ")
	sb.WriteString(e.Message)

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" ")
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(e.Fields[k])
		}
	}
	return sb.String()
}
