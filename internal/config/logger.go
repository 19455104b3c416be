package config

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// Logger writes one JSON object per line. Entries carry the acting Telegram
// user; scheduled jobs log actor 0.
type Logger struct {
	std   *log.Logger
	debug bool
	now   func() time.Time
}

func NewLogger(w io.Writer, debug bool) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{
		std:   log.New(w, "", 0),
		debug: debug,
		now:   time.Now,
	}
}

func (l *Logger) Info(action string, entity string, entityID int64, actorID int64, status string) {
	l.write("info", map[string]any{
		"action":    action,
		"entity":    entity,
		"entity_id": entityID,
		"actor_id":  actorID,
		"status":    status,
	})
}

func (l *Logger) Error(err error, action string, entity string, entityID int64, actorID int64) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	l.write("error", map[string]any{
		"action":    action,
		"entity":    entity,
		"entity_id": entityID,
		"actor_id":  actorID,
		"error":     msg,
	})
}

// Debug is dropped unless DEBUG is set.
func (l *Logger) Debug(action string, actorID int64, detail string) {
	if !l.debug {
		return
	}
	l.write("debug", map[string]any{
		"action":   action,
		"actor_id": actorID,
		"detail":   detail,
	})
}

func (l *Logger) write(level string, payload map[string]any) {
	payload["level"] = level
	payload["time"] = l.now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(payload)
	if err != nil {
		l.std.Printf(`{"level":"error","error":"logger marshal: %v"}`, err)
		return
	}
	l.std.Println(string(data))
}
