package app

import (
	"io"
	"strings"
	"sync"
)

const maxLogLines = 200

// logSink tees log output to a writer and keeps the last lines for the UI.
type logSink struct {
	mu       sync.Mutex
	out      io.Writer
	lines    []string
	onChange func(string)
}

func newLogSink(out io.Writer) *logSink {
	return &logSink{out: out}
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		s.lines = append(s.lines, line)
	}
	if len(s.lines) > maxLogLines {
		s.lines = s.lines[len(s.lines)-maxLogLines:]
	}
	text := strings.Join(s.lines, "\n")
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(text)
	}
	if s.out != nil {
		return s.out.Write(p)
	}
	return len(p), nil
}

// Subscribe registers fn to receive the full log text after each write.
func (s *logSink) Subscribe(fn func(string)) {
	s.mu.Lock()
	s.onChange = fn
	text := strings.Join(s.lines, "\n")
	s.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}
