package fs

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// LogLevel controls how chatty the package-wide logger is. None of the
// example repos in this domain (rclone, jacobsa/fuse, gcsfuse) reach for a
// named third-party logging library for their own core packages — they all
// roll a small leveled Errorf/Infof/Debugf dispatcher over the standard
// log package, and that is the idiom this type follows.
type LogLevel int

// Levels, most to least severe.
const (
	LogLevelError LogLevel = iota
	LogLevelNotice
	LogLevelInfo
	LogLevelDebug
)

var (
	logMu    sync.Mutex
	logLevel = LogLevelNotice
	logDest  = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLogLevel changes the minimum level that reaches the destination writer.
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	defer logMu.Unlock()
	logLevel = level
}

// SetLogOutput redirects where log lines are written; tests commonly point
// this at a bytes.Buffer to assert on emitted lines.
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	logDest = log.New(w, "", log.LstdFlags)
}

// describe renders the log subject the way rclone's fs.Errorf renders its
// first argument: nil becomes "-", anything with a String() method uses it,
// everything else falls back to fmt.Sprint.
func describe(o any) string {
	if o == nil {
		return "-"
	}
	if s, ok := o.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprint(o)
}

func logf(level LogLevel, prefix string, o any, format string, args ...any) {
	logMu.Lock()
	cur := logLevel
	dest := logDest
	logMu.Unlock()
	if level > cur {
		return
	}
	dest.Printf("%s: %s: %s", prefix, describe(o), fmt.Sprintf(format, args...))
}

// Errorf logs at error level. The subject o is typically the filesystem,
// handle, or path the message is about.
func Errorf(o any, format string, args ...any) { logf(LogLevelError, "ERROR", o, format, args...) }

// Noticef logs at notice level, for messages that should surface by default
// but aren't errors (e.g. "recreated missing root inode").
func Noticef(o any, format string, args ...any) { logf(LogLevelNotice, "NOTICE", o, format, args...) }

// Infof logs at info level.
func Infof(o any, format string, args ...any) { logf(LogLevelInfo, "INFO", o, format, args...) }

// Debugf logs at debug level, for the high-volume per-operation traces.
func Debugf(o any, format string, args ...any) { logf(LogLevelDebug, "DEBUG", o, format, args...) }
