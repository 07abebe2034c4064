package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps LOG_LEVEL values onto a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes category-tagged lines to the console and, optionally, a file.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level

	debug   *color.Color
	info    *color.Color
	warn    *color.Color
	err     *color.Color
	process *color.Color
	db      *color.Color
	kafka   *color.Color
	api     *color.Color
	sec     *color.Color
	checkin *color.Color
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FILE.
func NewLogger() *Logger {
	l := New(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Warn("LOGGER", "Could not open log file "+path+": "+err.Error())
		} else {
			l.file = f
			l.out = io.MultiWriter(os.Stdout, f)
		}
	}
	return l
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out:     w,
		level:   level,
		debug:   color.New(color.FgHiBlack),
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
		process: color.New(color.FgGreen),
		db:      color.New(color.FgBlue),
		kafka:   color.New(color.FgMagenta),
		api:     color.New(color.FgWhite),
		sec:     color.New(color.FgHiRed),
		checkin: color.New(color.FgHiGreen),
	}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out = os.Stdout
	return err
}

func (l *Logger) write(level Level, c *color.Color, tag, category, msg string) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	line := c.Sprintf("[%s] %-7s %-10s", ts, tag, category)
	fmt.Fprintf(l.out, "%s %s\n", line, msg)
}

func (l *Logger) Debug(category, msg string) { l.write(LevelDebug, l.debug, "DEBUG", category, msg) }
func (l *Logger) Info(category, msg string)  { l.write(LevelInfo, l.info, "INFO", category, msg) }
func (l *Logger) Warn(category, msg string)  { l.write(LevelWarn, l.warn, "WARN", category, msg) }
func (l *Logger) Error(category, msg string) { l.write(LevelError, l.err, "ERROR", category, msg) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(category, msg string) {
	l.write(LevelError, l.err, "FATAL", category, msg)
	_ = l.Close()
	os.Exit(1)
}

func (l *Logger) LogProcess(category, msg string) {
	l.write(LevelInfo, l.process, "PROC", category, msg)
}

func (l *Logger) LogDatabase(operation, db, msg string) {
	l.write(LevelDebug, l.db, "DB", strings.ToUpper(db), operation+" "+msg)
}

func (l *Logger) LogKafka(operation, topic, msg string) {
	l.write(LevelInfo, l.kafka, "KAFKA", operation, "["+topic+"] "+msg)
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(LevelInfo, l.api, "API", method, fmt.Sprintf("%s %s (%s)", path, status, duration))
}

func (l *Logger) LogSecurity(event, msg string) {
	l.write(LevelWarn, l.sec, "SEC", event, msg)
}

func (l *Logger) LogCheckIn(operation, ticketID, msg string) {
	l.write(LevelInfo, l.checkin, "CHECKIN", operation, "ticket="+ticketID+" "+msg)
}

func (l *Logger) LogTicket(operation, orderID, msg string) {
	l.write(LevelInfo, l.process, "TICKET", operation, "order="+orderID+" "+msg)
}
