// Package logger writes leveled lines through the standard log package. The level is
// process-wide and set once from LOG_LEVEL at startup.
package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

const (
	levelDebug int32 = iota + 1
	levelInfo
	levelWarn
	levelError
)

var levelNames = map[string]int32{
	"debug":   levelDebug,
	"info":    levelInfo,
	"warn":    levelWarn,
	"warning": levelWarn,
	"error":   levelError,
}

var logLevel atomic.Int32

func init() {
	logLevel.Store(levelInfo)
}

// SetLevel accepts debug, info, warn(ing) or error in any case. Anything else falls
// back to info.
func SetLevel(level string) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		l = levelInfo
	}
	logLevel.Store(l)
}

func IsDebugEnabled() bool {
	return enabled(levelDebug)
}

func enabled(l int32) bool {
	return logLevel.Load() <= l
}

func logf(l int32, prefix, format string, v ...any) {
	if !enabled(l) {
		return
	}
	log.Printf(prefix+format, v...)
}

func Debugf(format string, v ...any) { logf(levelDebug, "[DEBUG] ", format, v...) }

func Infof(format string, v ...any) { logf(levelInfo, "[INFO] ", format, v...) }

func Warnf(format string, v ...any) { logf(levelWarn, "[WARN] ", format, v...) }

func Errorf(format string, v ...any) { logf(levelError, "[ERROR] ", format, v...) }
