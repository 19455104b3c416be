package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type Settings struct {
	BotToken  string  `env:"BOT_TOKEN,required,notEmpty"`
	DBDSN     string  `env:"DB_DSN,required,notEmpty"`
	AdminIDs  []int64 `env:"ADMIN_IDS,required,notEmpty" envSeparator:","`
	MainAdmin int64   `env:"MAIN_ADMIN"`
	ClubTZ    string  `env:"CLUB_TZ" envDefault:"Europe/Moscow"`

	PaymentLead    time.Duration `env:"PAYMENT_LEAD" envDefault:"24h"`
	TeamSizeLead   time.Duration `env:"TEAM_SIZE_LEAD" envDefault:"3h"`
	PromotionGrace time.Duration `env:"PROMOTION_GRACE" envDefault:"3h"`
	HourlySpec     string        `env:"HOURLY_SPEC" envDefault:"0 0 * * * *"`
	DailySpec      string        `env:"DAILY_SPEC" envDefault:"0 0 10 * * *"`

	OTELEndpoint    string  `env:"OTEL_ENDPOINT"`
	OTELSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
	Debug           bool    `env:"DEBUG"`

	Location *time.Location `env:"-"`
}

// Load reads .env and the environment and opens the database pool.
func Load(ctx context.Context) (*Settings, *pgxpool.Pool, error) {
	_ = godotenv.Load()

	set, err := parse(env.Options{})
	if err != nil {
		return nil, nil, err
	}
	pool, err := Connect(ctx, set.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	return set, pool, nil
}

func parse(opts env.Options) (*Settings, error) {
	set := &Settings{}
	if err := env.ParseWithOptions(set, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	set.BotToken = strings.TrimSpace(set.BotToken)
	set.DBDSN = strings.TrimSpace(set.DBDSN)
	if set.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if set.OTELSampleRatio < 0 || set.OTELSampleRatio > 1 {
		return nil, fmt.Errorf("OTEL_SAMPLE_RATIO %g outside [0, 1]", set.OTELSampleRatio)
	}

	for _, id := range set.AdminIDs {
		if id <= 0 {
			return nil, fmt.Errorf("invalid admin id %d", id)
		}
	}
	if set.MainAdmin == 0 {
		set.MainAdmin = set.AdminIDs[0]
	}

	location, err := time.LoadLocation(strings.TrimSpace(set.ClubTZ))
	if err != nil {
		return nil, fmt.Errorf("load CLUB_TZ: %w", err)
	}
	set.Location = location
	return set, nil
}

// IsAdmin reports whether the Telegram user may use admin commands.
func (s *Settings) IsAdmin(tgID int64) bool {
	for _, id := range s.AdminIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return pool, nil
}
