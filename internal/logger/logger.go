package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log *logrus.Logger
	mu  sync.RWMutex
)

// Init configures the global logger. level is a logrus level name
// (debug, info, warn, error); format is "json" or "text".
func Init(level, format string) {
	mu.Lock()
	defer mu.Unlock()

	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log = l
}

// L returns the global logger instance
func L() *logrus.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		Init("info", "text")
		mu.RLock()
		l = log
		mu.RUnlock()
	}
	return l
}

// With returns an entry carrying the given key/value pairs.
func With(kv ...any) *logrus.Entry {
	return L().WithFields(fields(kv))
}

func Info(msg string, kv ...any)  { With(kv...).Info(msg) }
func Warn(msg string, kv ...any)  { With(kv...).Warn(msg) }
func Error(msg string, kv ...any) { With(kv...).Error(msg) }
func Debug(msg string, kv ...any) { With(kv...).Debug(msg) }

// fields turns alternating key/value arguments into logrus fields.
// A trailing key without a value is logged under "!BADKEY".
func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			f["!BADKEY"] = kv[i]
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		f[key] = kv[i+1]
	}
	return f
}
