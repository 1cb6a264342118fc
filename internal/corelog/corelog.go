// Package corelog provides the sync core's leveled, env-gated logging,
// modeled on the teacher's rpcDebugLog/debug.Logf pattern: quiet by
// default, verbose when an environment variable or explicit Level is set,
// with optional rotation through lumberjack when a log file is configured.
package corelog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Level controls which severities are emitted.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	mu       sync.Mutex
	level    = defaultLevel()
	output   io.Writer = os.Stderr
	stdlog             = log.New(output, "", log.LstdFlags)
)

func defaultLevel() Level {
	v := os.Getenv("BMSYNC_DEBUG")
	if v == "1" || v == "true" {
		return LevelDebug
	}
	return LevelInfo
}

// SetLevel overrides the active log level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// UseRotatingFile directs output through a lumberjack.Logger rotating at
// maxSizeMB, keeping maxBackups old files.
func UseRotatingFile(path string, maxSizeMB, maxBackups int) {
	mu.Lock()
	defer mu.Unlock()
	output = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	stdlog = log.New(output, "", log.LstdFlags)
}

func logAt(l Level, prefix, format string, args ...any) {
	mu.Lock()
	cur := level
	lg := stdlog
	mu.Unlock()

	if l > cur {
		return
	}
	lg.Output(3, fmt.Sprintf(prefix+" "+format, args...)) //nolint:errcheck
}

func Errorf(format string, args ...any) { logAt(LevelError, "[error]", format, args...) }
func Warnf(format string, args ...any)  { logAt(LevelWarn, "[warn]", format, args...) }
func Infof(format string, args ...any)  { logAt(LevelInfo, "[info]", format, args...) }
func Debugf(format string, args ...any) { logAt(LevelDebug, "[debug]", format, args...) }
