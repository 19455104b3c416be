package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestParse(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"BOT_TOKEN": "token",
			"DB_DSN":    "postgres://localhost/club",
			"ADMIN_IDS": "11,22",
		}
	}

	t.Run("defaults", func(t *testing.T) {
		set, err := parse(env.Options{Environment: base()})
		if err != nil {
			t.Fatalf("parse() error = %v", err)
		}
		if len(set.AdminIDs) != 2 || set.AdminIDs[1] != 22 {
			t.Fatalf("AdminIDs = %v", set.AdminIDs)
		}
		if set.MainAdmin != 11 {
			t.Fatalf("MainAdmin = %d, want first admin", set.MainAdmin)
		}
		if set.Location.String() != "Europe/Moscow" {
			t.Fatalf("Location = %s", set.Location)
		}
		if set.PaymentLead != 24*time.Hour || set.TeamSizeLead != 3*time.Hour || set.PromotionGrace != 3*time.Hour {
			t.Fatalf("leads = %v %v %v", set.PaymentLead, set.TeamSizeLead, set.PromotionGrace)
		}
		if set.HourlySpec != "0 0 * * * *" || set.OTELSampleRatio != 1 {
			t.Fatalf("hourly = %q, sample ratio = %g", set.HourlySpec, set.OTELSampleRatio)
		}
		if !set.IsAdmin(22) || set.IsAdmin(33) {
			t.Fatal("IsAdmin mismatch")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		vars := base()
		vars["MAIN_ADMIN"] = "22"
		vars["CLUB_TZ"] = "UTC"
		vars["PAYMENT_LEAD"] = "12h"
		vars["DEBUG"] = "1"
		set, err := parse(env.Options{Environment: vars})
		if err != nil {
			t.Fatalf("parse() error = %v", err)
		}
		if set.MainAdmin != 22 || set.Location != time.UTC || set.PaymentLead != 12*time.Hour || !set.Debug {
			t.Fatalf("settings = %+v", set)
		}
	})

	failures := []struct {
		name string
		edit func(map[string]string)
	}{
		{name: "missing token", edit: func(v map[string]string) { delete(v, "BOT_TOKEN") }},
		{name: "missing admins", edit: func(v map[string]string) { delete(v, "ADMIN_IDS") }},
		{name: "bad admin id", edit: func(v map[string]string) { v["ADMIN_IDS"] = "11,abc" }},
		{name: "negative admin id", edit: func(v map[string]string) { v["ADMIN_IDS"] = "-5" }},
		{name: "missing dsn", edit: func(v map[string]string) { delete(v, "DB_DSN") }},
		{name: "blank dsn", edit: func(v map[string]string) { v["DB_DSN"] = "  " }},
		{name: "sample ratio above one", edit: func(v map[string]string) { v["OTEL_SAMPLE_RATIO"] = "2" }},
		{name: "bad timezone", edit: func(v map[string]string) { v["CLUB_TZ"] = "Mars/Olympus" }},
		{name: "bad duration", edit: func(v map[string]string) { v["PROMOTION_GRACE"] = "soon" }},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			vars := base()
			tt.edit(vars)
			if _, err := parse(env.Options{Environment: vars}); err == nil {
				t.Fatal("parse() error = nil")
			}
		})
	}
}

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false)
	logger.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	logger.Info("register", "event", 7, 42, "reserve")
	logger.Error(errors.New("boom"), "promote", "team", 3, 0)
	logger.Debug("callback", 42, "ignored")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2 (debug disabled)", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["level"] != "info" || entry["status"] != "reserve" || entry["actor_id"] != float64(42) {
		t.Fatalf("info entry = %v", entry)
	}
	if entry["time"] != "2025-03-01T12:00:00Z" {
		t.Fatalf("time = %v", entry["time"])
	}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["level"] != "error" || entry["error"] != "boom" {
		t.Fatalf("error entry = %v", entry)
	}
}

func TestLoggerDebug(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, true).Debug("callback", 42, "evt|id=1")
	if !strings.Contains(buf.String(), `"detail":"evt|id=1"`) {
		t.Fatalf("debug line = %q", buf.String())
	}
}
