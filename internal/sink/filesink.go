package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/angeloszaimis/site-guard/internal/check"
)

// Sink records completed check results. Implementations must be safe for
// concurrent Record calls.
type Sink interface {
	Record(result *check.Result) error
	Close() error
}

// FileSink appends JSON result entries to a rotating log file.
type FileSink struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewFileSink opens a file sink at path. The file rotates at 50 MB, keeps
// 14 compressed backups, and is created lazily on the first write.
func NewFileSink(path string) *FileSink {
	return &FileSink{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 14,
			MaxAge:     14, // days
			Compress:   true,
		},
	}
}

// NewWriterSink wraps an arbitrary writer, mainly for tests.
func NewWriterSink(w io.WriteCloser) *FileSink {
	return &FileSink{out: w}
}

// Record writes one result as a pretty-printed JSON entry followed by a
// newline. Writes are serialized under a mutex.
func (s *FileSink) Record(result *check.Result) error {
	entry := struct {
		*check.Result
		CheckType string `json:"check_type"`
	}{Result: result, CheckType: "site_monitoring"}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", result.URL, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("writing result for %s: %w", result.URL, err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
