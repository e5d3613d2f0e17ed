package adapters

import (
	"bytes"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// lineLogWriter turns a byte stream into one log event per line.
type lineLogWriter struct {
	mu     sync.Mutex
	logger zerolog.Logger
	level  zerolog.Level
	source string
	buf    bytes.Buffer
}

func newLineLogWriter(logger zerolog.Logger, level zerolog.Level, source string) *lineLogWriter {
	return &lineLogWriter{logger: logger, level: level, source: source}
}

func (w *lineLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line, keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *lineLogWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineLogWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	w.logger.WithLevel(w.level).Str("source", w.source).Msg(line)
}
