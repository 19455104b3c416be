package pg

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
)

func TestBuildUpdateSet(t *testing.T) {
	level := 4
	gender := models.GenderFemale

	tests := []struct {
		name     string
		patch    models.PlayerPatch
		wantSet  string
		wantArgs []any
	}{
		{name: "empty patch", patch: models.PlayerPatch{}},
		{
			name:     "level only",
			patch:    models.PlayerPatch{Level: &level},
			wantSet:  "level=$1, updated_at=NOW()",
			wantArgs: []any{4},
		},
		{
			name:     "level and gender",
			patch:    models.PlayerPatch{Level: &level, Gender: &gender},
			wantSet:  "level=$1, gender=$2, updated_at=NOW()",
			wantArgs: []any{4, "female"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, args := buildUpdateSet([]column{
				{name: "level", value: tt.patch.Level},
				{name: "gender", value: tt.patch.Gender},
			})
			if set != tt.wantSet {
				t.Fatalf("set = %q, want %q", set, tt.wantSet)
			}
			if fmt.Sprint(args) != fmt.Sprint(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestApplyFilter(t *testing.T) {
	active := true
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	tests := []struct {
		name     string
		filter   models.EventFilter
		wantSQL  string
		wantArgs int
	}{
		{
			name:    "no filter",
			wantSQL: "SELECT id FROM events ORDER BY date, id",
		},
		{
			name:     "active only",
			filter:   models.EventFilter{Active: &active},
			wantSQL:  "SELECT id FROM events WHERE active = $1 ORDER BY date, id",
			wantArgs: 1,
		},
		{
			name:     "date range",
			filter:   models.EventFilter{Active: &active, From: &from, To: &to},
			wantSQL:  "SELECT id FROM events WHERE active = $1 AND date >= $2 AND date <= $3 ORDER BY date, id",
			wantArgs: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := applyFilter(psql.Select("id").From("events"), tt.filter).ToSql()
			if err != nil {
				t.Fatalf("ToSql() error = %v", err)
			}
			if query != tt.wantSQL {
				t.Fatalf("sql = %q, want %q", query, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}

func TestMapErr(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: models.ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: uniqueViolation}, want: models.ErrConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: foreignKeyViolation}, want: models.ErrNotFound},
		{name: "other", err: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("mapErr() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("mapErr() = %v, want %v", got, tt.want)
			}
		})
	}
}
