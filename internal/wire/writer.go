package wire

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Writer appends records to an underlying stream.
//
// Writer is safe for concurrent use; each Write call takes a single lock and
// issues a single write for the whole batch.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	buf    []byte
	closed bool
}

// NewWriter creates a writer and emits the format header.
func NewWriter(w io.Writer) (*Writer, error) {
	wr := &Writer{w: w}
	if err := wr.Write(Header()); err != nil {
		return nil, err
	}
	return wr, nil
}

// Create opens path for appending and returns a writer for it.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Write encodes and flushes the given records.
func (w *Writer) Write(records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("metrics writer is closed")
	}

	w.buf = w.buf[:0]
	for _, r := range records {
		if len(r.Name) > MaxNameLength {
			return fmt.Errorf("metric name too long: %d bytes", len(r.Name))
		}
		w.buf = r.AppendBinary(w.buf)
	}

	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Close closes the underlying stream if it is closable. Further writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
