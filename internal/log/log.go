package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *stdlog.Logger
	loggerOnce sync.Once
	mu         sync.RWMutex
	minLevel   = LevelInfo
)

// initLogger initializes the global logger to write to stderr.
// Timestamps are rendered by logWithLevel so the stdlog prefix stays empty.
func initLogger() {
	loggerOnce.Do(func() {
		logger = stdlog.New(os.Stderr, "", 0)
	})
}

// ParseLevel maps a config string onto a Level. Unknown values yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	minLevel = l
	mu.Unlock()
}

// SetOutput redirects log lines, mostly for tests.
func SetOutput(w io.Writer) {
	initLogger()
	logger.SetOutput(w)
}

func Debug(msg string, kv ...any) {
	logWithLevel(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(LevelInfo, msg, kv...)
}

func Warn(msg string, kv ...any) {
	logWithLevel(LevelWarn, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

func logWithLevel(level Level, msg string, kv ...any) {
	initLogger()
	if !enabled(level) {
		return
	}

	ts := time.Now().Format(time.RFC3339Nano)

	// 2025-01-01T00:00:00Z [LEVEL] msg key=value ...
	line := ts + " [" + string(level) + "] " + msg
	if len(kv) > 0 {
		line += formatKVs(kv...)
	}

	logger.Println(line)
}

func rank(l Level) int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

func enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return rank(level) >= rank(minLevel)
}

func formatKVs(kv ...any) string {
	var b strings.Builder
	// Pairs: key, value, key, value, ... A trailing odd key is dropped.
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(quoteIfNeeded(fmt.Sprint(kv[i+1])))
	}
	return b.String()
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
