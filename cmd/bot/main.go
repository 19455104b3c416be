package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"

	"github.com/w3qxst1ck/volleyballScheduler/internal/config"
	"github.com/w3qxst1ck/volleyballScheduler/internal/jobs"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository/pg"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
	"github.com/w3qxst1ck/volleyballScheduler/internal/session"
	"github.com/w3qxst1ck/volleyballScheduler/internal/telegram"
	"github.com/w3qxst1ck/volleyballScheduler/internal/telemetry"
)

const serviceName = "volleyball-scheduler"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type repositories struct {
	players     repository.PlayersRepository
	events      repository.EventsRepository
	tournaments repository.TournamentsRepository
	teams       repository.TeamsRepository
	payments    repository.PaymentsRepository
	reserve     repository.ReserveRepository
	sessions    repository.SessionsRepository
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, pool, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	defer pool.Close()

	logger := config.NewLogger(os.Stdout, settings.Debug)

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Version:     version,
		Endpoint:    settings.OTELEndpoint,
		SampleRatio: settings.OTELSampleRatio,
		Debug:       settings.Debug,
		TimeZone:    settings.Location.String(),
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Error(err, "telemetry_shutdown", "bot", 0, 0)
		}
	}()

	if err := pg.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	repos := repositories{
		players:     pg.NewPlayersRepo(pool),
		events:      pg.NewEventsRepo(pool),
		tournaments: pg.NewTournamentsRepo(pool),
		teams:       pg.NewTeamsRepo(pool),
		payments:    pg.NewPaymentsRepo(pool),
		reserve:     pg.NewReserveRepo(pool),
		sessions:    pg.NewSessionsRepo(pool),
	}

	botAPI, err := tgbotapi.NewBotAPI(settings.BotToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	botAPI.Debug = settings.Debug
	notifier := telegram.NewNotifier(botAPI, append([]int64{settings.MainAdmin}, settings.AdminIDs...))

	scoring := roster.DefaultScoring()
	policy := roster.NewPolicy(scoring)
	promoter := roster.NewPromoter(repos.reserve, time.Now)

	deps := service.Deps{
		Players:     repos.players,
		Events:      repos.events,
		Tournaments: repos.tournaments,
		Teams:       repos.teams,
		Payments:    repos.payments,
		Policy:      policy,
		Promoter:    promoter,
		Notifier:    notifier,
		Logger:      logger,
		Location:    settings.Location,
	}
	playersSvc := service.NewPlayersService(repos.players, func(level int) bool {
		_, ok := scoring.Levels[level]
		return ok
	})
	eventsSvc := service.NewEventsService(deps)
	tournamentsSvc := service.NewTournamentsService(deps)
	teamsSvc := service.NewTeamsService(deps)
	paymentsSvc := service.NewPaymentsService(deps)
	sessionStore := session.NewStore(service.NewSessionService(repos.sessions))

	cfg := jobs.DefaultConfig()
	cfg.PaymentLead = settings.PaymentLead
	cfg.TeamSizeLead = settings.TeamSizeLead
	cfg.PromotionGrace = settings.PromotionGrace
	lifecycle := jobs.New(jobs.Deps{
		Events:      repos.events,
		Tournaments: repos.tournaments,
		Teams:       repos.teams,
		Payments:    repos.payments,
		Remover:     teamsSvc,
		Notifier:    notifier,
		Logger:      logger,
		Tracer:      otel.Tracer(serviceName),
		Location:    settings.Location,
	}, cfg)

	lock := &sync.Mutex{}
	scheduler := jobs.NewScheduler(lifecycle, lock, settings.Location, logger)
	if err := scheduler.Register(ctx, settings.HourlySpec, settings.DailySpec); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	bot := telegram.NewBot(botAPI, settings.AdminIDs, settings.Location, telegram.Services{
		Players:     playersSvc,
		Events:      eventsSvc,
		Tournaments: tournamentsSvc,
		Teams:       teamsSvc,
		Payments:    paymentsSvc,
		Sessions:    sessionStore,
		Notifier:    notifier,
	}, policy, logger, lock)

	logger.Info("start", "bot", 0, 0, version)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped: %v", err)
	}
}
