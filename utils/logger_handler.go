package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// Fields is re-exported so callers do not import logrus directly.
type Fields = logrus.Fields

// lineFormatter renders "[timestamp] [LEVEL] [source] message key=value".
type lineFormatter struct {
	mu       sync.RWMutex
	useColor bool
}

func (f *lineFormatter) setUseColor(useColor bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.useColor = useColor
}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	f.mu.RLock()
	useColor := f.useColor
	f.mu.RUnlock()

	var b bytes.Buffer
	timestamp := entry.Time.Format(time.RFC3339)
	levelText := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		levelText = "WARN"
	}
	source := callerFileName()

	if useColor {
		fmt.Fprintf(&b, "%s[%s] [%s] [%s]%s %s", levelToColor(entry.Level), timestamp, levelText, source, colorReset, entry.Message)
	} else {
		fmt.Fprintf(&b, "[%s] [%s] [%s] %s", timestamp, levelText, source, entry.Message)
	}

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// callerFileName skips logrus and this package to find the file that logged.
func callerFileName() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return "unknown"
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "sirupsen/logrus") && !strings.HasSuffix(frame.File, "logger_handler.go") {
			base := filepath.Base(frame.File)
			return strings.TrimSuffix(base, filepath.Ext(base))
		}
		if !more {
			break
		}
	}

	return "unknown"
}

func levelToColor(level logrus.Level) string {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return colorCyan
	case logrus.InfoLevel:
		return colorGreen
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorGreen
	}
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func shouldUseColor() bool {
	if strings.EqualFold(os.Getenv("NO_COLOR"), "1") || strings.EqualFold(os.Getenv("NO_COLOR"), "true") {
		return false
	}
	if strings.EqualFold(os.Getenv("LOG_COLOR"), "0") || strings.EqualFold(os.Getenv("LOG_COLOR"), "false") {
		return false
	}
	return true
}

var (
	formatter     = &lineFormatter{useColor: shouldUseColor()}
	defaultLogger = newLogger()
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(formatter)
	logger.SetLevel(parseLogLevel(os.Getenv("LOG_LEVEL")))
	return logger
}

// Logger returns the process-wide logger. Cron and other libraries that accept
// a Printf-style logger are wired to it.
func Logger() *logrus.Logger {
	return defaultLogger
}

func SetLogLevel(level string) {
	defaultLogger.SetLevel(parseLogLevel(level))
}

func SetLogColor(useColor bool) {
	formatter.setUseColor(useColor)
}

// SetLogFormat switches between the line format and logrus' JSON formatter.
func SetLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		defaultLogger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	defaultLogger.SetFormatter(formatter)
}

func WithFields(fields Fields) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

func Debugf(format string, args ...interface{}) {
	defaultLogger.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	defaultLogger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}
