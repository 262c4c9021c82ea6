// Package logging builds the logger shared by a cf-ddns run:
// a size-capped rotating log file plus an optional echo to the terminal.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// maxSizeMB caps the log file before it is rotated.
	maxSizeMB = 1
	// maxBackups is the number of rotated files kept next to the live one.
	maxBackups = 1
)

// Levels accepted by ParseLevel, most to least severe.
var Levels = []string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG", "NOTSET"}

// DefaultFile returns ~/.cf-ddns.log.
func DefaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cf-ddns.log")
}

// ParseLevel maps a level name to a logrus level.
// NOTSET logs everything.
func ParseLevel(name string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CRITICAL":
		return logrus.FatalLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	case "WARNING", "WARN":
		return logrus.WarnLevel, nil
	case "INFO":
		return logrus.InfoLevel, nil
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "NOTSET":
		return logrus.TraceLevel, nil
	}
	return logrus.InfoLevel, fmt.Errorf("unknown log level %q; use one of %s", name, strings.Join(Levels, ", "))
}

// Options configures New.
type Options struct {
	Level string
	// File is the log file path. Empty means DefaultFile.
	File string
	// Echo receives a copy of every line unless Silent is set. Nil means os.Stdout.
	Echo   io.Writer
	Silent bool
}

// Logger is a logrus logger that owns its log file.
// Close must be called once the run is over.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New creates the log directory if needed and opens the rotating log file.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	path := opts.File
	if path == "" {
		path = DefaultFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}

	var out io.Writer = file
	if !opts.Silent {
		echo := opts.Echo
		if echo == nil {
			echo = os.Stdout
		}
		out = io.MultiWriter(file, echo)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(Formatter{})
	return &Logger{Logger: l, file: file}, nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// Formatter writes "2006-01-02 15:04:05,000 LEVEL message key=value ...".
type Formatter struct{}

func (Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, ",%03d %s %s", e.Time.Nanosecond()/1e6, levelName(e.Level), strings.TrimRight(e.Message, "\n"))

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return "CRITICAL"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.DebugLevel:
		return "DEBUG"
	}
	return "TRACE"
}
