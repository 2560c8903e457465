package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type levelStyle struct {
	name     string
	level    *color.Color
	category *color.Color
}

var styles = map[LogLevel]levelStyle{
	DEBUG: {"DEBUG", color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
	INFO:  {"INFO", color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
	WARN:  {"WARN", color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
	ERROR: {"ERROR", color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
	FATAL: {"FATAL", color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
}

var (
	clockColor  = color.New(color.FgBlue)
	callerColor = color.New(color.FgMagenta)
)

func (lv LogLevel) String() string {
	if s, ok := styles[lv]; ok {
		return s.name
	}
	return "INFO"
}

// ParseLevel maps LOG_LEVEL values to a level. Unknown values are INFO.
func ParseLevel(s string) LogLevel {
	for lv, st := range styles {
		if strings.EqualFold(st.name, s) {
			return lv
		}
	}
	return INFO
}

type entry struct {
	Time     time.Time `json:"timestamp"`
	Level    string    `json:"level"`
	Service  string    `json:"service,omitempty"`
	Category string    `json:"category"`
	Message  string    `json:"message"`
	Caller   string    `json:"caller,omitempty"`
}

// Logger prints coloured lines for humans and appends JSON lines for
// machines. Categories are upper-cased tags like "SETTLEMENT" or "API".
type Logger struct {
	service  string
	minLevel LogLevel

	mu      sync.Mutex
	console io.Writer
	jsonOut io.WriteCloser
}

// NewLogger writes to stdout and to logs/<service>-YYYY-MM-DD.log.
func NewLogger(service string) *Logger {
	path := filepath.Join("logs", fmt.Sprintf("%s-%s.log", service, time.Now().Format("2006-01-02")))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("logger: create %s: %v", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("logger: open %s: %v", path, err)
	}

	l := &Logger{
		service:  service,
		minLevel: ParseLevel(os.Getenv("LOG_LEVEL")),
		console:  os.Stdout,
		jsonOut:  f,
	}
	l.Info("LOGGER", fmt.Sprintf("%s logging to %s", service, path))
	return l
}

// NewWithWriter logs plain console lines to w and keeps no file.
func NewWithWriter(service string, w io.Writer) *Logger {
	return &Logger{service: service, minLevel: DEBUG, console: w}
}

func NewDiscard() *Logger {
	return &Logger{minLevel: FATAL + 1, console: io.Discard}
}

func (l *Logger) write(level LogLevel, category, message string) {
	if level < l.minLevel {
		return
	}

	e := entry{
		Time:     time.Now().UTC(),
		Level:    level.String(),
		Service:  l.service,
		Category: strings.ToUpper(category),
		Message:  message,
	}
	if _, file, line, ok := runtime.Caller(3); ok {
		e.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	io.WriteString(l.console, consoleLine(level, e))
	if l.jsonOut != nil {
		if b, err := json.Marshal(e); err == nil {
			l.jsonOut.Write(append(b, '\n'))
		}
	}
}

func consoleLine(level LogLevel, e entry) string {
	st := styles[level]
	line := fmt.Sprintf("%s %s %s %s",
		clockColor.Sprint(e.Time.Format("15:04:05")),
		st.level.Sprintf("%-5s", st.name),
		st.category.Sprintf("[%-10s]", e.Category),
		e.Message,
	)
	if e.Caller != "" {
		line += callerColor.Sprintf(" (%s)", e.Caller)
	}
	return line + "\n"
}

func (l *Logger) logf(level LogLevel, category, message string) {
	l.write(level, category, message)
}

func (l *Logger) Debug(category, message string) { l.logf(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.logf(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.logf(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.logf(ERROR, category, message) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(category, message string) {
	l.logf(FATAL, category, message)
	l.Close()
	os.Exit(1)
}

func (l *Logger) LogAPI(method, path string, status int, duration time.Duration) {
	l.logf(INFO, "API", fmt.Sprintf("%s %s - %d (%s)", method, path, status, duration))
}

func (l *Logger) LogPayment(provider, reference, message string) {
	l.logf(INFO, "PAYMENT", fmt.Sprintf("[%s] %s - %s", provider, reference, message))
}

func (l *Logger) LogSettlement(action, reference, message string) {
	l.logf(INFO, "SETTLEMENT", fmt.Sprintf("[%s] %s - %s", action, reference, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.logf(DEBUG, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

// LogNotify records the outcome of one email send, including the real
// error when it failed.
func (l *Logger) LogNotify(to, subject string, err error) {
	if err != nil {
		l.logf(ERROR, "NOTIFY", fmt.Sprintf("send %q to %s failed: %v", subject, to, err))
		return
	}
	l.logf(INFO, "NOTIFY", fmt.Sprintf("sent %q to %s", subject, to))
}

func (l *Logger) LogSecurity(event, message string) {
	l.logf(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonOut != nil {
		l.jsonOut.Close()
		l.jsonOut = nil
	}
}
