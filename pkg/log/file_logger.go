package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends protocol events to a CBOR event log file, the
// format the castlog tool reads back. Safe for concurrent use.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	werr   error
	closed bool
}

// NewFileLogger opens path for appending, creating it with 0644 when
// it does not exist.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f, enc: NewEncoder(f)}, nil
}

// Log appends one event. Write errors never disrupt the caller; the
// first one is kept and reported by Close.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err != nil && l.werr == nil {
		l.werr = err
	}
}

// Close closes the log file and returns the first write error seen,
// if any. Safe to call more than once; Log calls after Close are
// silently dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	err := l.file.Close()
	if l.werr != nil {
		return l.werr
	}
	return err
}

var _ Logger = (*FileLogger)(nil)
