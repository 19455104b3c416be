package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository/memory"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
)

const adminTgID = 999

var errBlocked = errors.New("bot was blocked by the user")

type message struct {
	tgID int64
	text string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []message
	fail map[int64]bool
}

func (n *recordingNotifier) Notify(_ context.Context, tgID int64, text string) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[tgID] {
		return notify.Result{TgID: tgID, Err: errBlocked}
	}
	n.sent = append(n.sent, message{tgID: tgID, text: text})
	return notify.Result{TgID: tgID, Sent: true}
}

func (n *recordingNotifier) NotifyMany(ctx context.Context, tgIDs []int64, text string) []notify.Result {
	var results []notify.Result
	for _, id := range notify.Unique(tgIDs) {
		results = append(results, n.Notify(ctx, id, text))
	}
	return results
}

func (n *recordingNotifier) NotifyAdmins(ctx context.Context, text string) []notify.Result {
	return []notify.Result{n.Notify(ctx, adminTgID, text)}
}

func (n *recordingNotifier) to(tgID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var texts []string
	for _, m := range n.sent {
		if m.tgID == tgID {
			texts = append(texts, m.text)
		}
	}
	return texts
}

func (n *recordingNotifier) received(tgID int64, fragment string) bool {
	for _, text := range n.to(tgID) {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []error
}

func (l *recordingLogger) Info(action string, entity string, _ int64, _ int64, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, entity+":"+action+":"+status)
}

func (l *recordingLogger) Error(err error, _ string, _ string, _ int64, _ int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

type testEnv struct {
	store    *memory.Store
	deps     Deps
	notifier *recordingNotifier
	logger   *recordingLogger
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	notifier := &recordingNotifier{fail: map[int64]bool{}}
	logger := &recordingLogger{}
	return &testEnv{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      now,
		deps: Deps{
			Players:     store.Players(),
			Events:      store.Events(),
			Tournaments: store.Tournaments(),
			Teams:       store.Teams(),
			Payments:    store.Payments(),
			Policy:      roster.NewPolicy(roster.DefaultScoring()),
			Promoter:    roster.NewPromoter(store.Reserve(), clock),
			Notifier:    notifier,
			Logger:      logger,
			Location:    time.UTC,
			Now:         clock,
		},
	}
}

func (e *testEnv) player(t *testing.T, tgID int64, level int, gender models.Gender) models.Player {
	t.Helper()
	p := models.Player{TgID: tgID, FirstName: "Игрок", LastName: "Тестовый", Level: &level, Gender: &gender}
	id, err := e.store.Players().Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	p.ID = id
	return p
}

func (e *testEnv) event(t *testing.T, places, price int) models.Event {
	t.Helper()
	event := models.Event{
		Title:  "Игровая",
		Date:   e.now.Add(48 * time.Hour),
		Places: places,
		Active: true,
		Price:  price,
	}
	id, err := e.store.Events().Create(context.Background(), event)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	event.ID = id
	return event
}

func (e *testEnv) tournament(t *testing.T, maxTeams int) models.Tournament {
	t.Helper()
	tournament := models.Tournament{
		Title:          "Кубок",
		Date:           e.now.Add(72 * time.Hour),
		MinTeamCount:   1,
		MaxTeamCount:   maxTeams,
		MinTeamPlayers: 2,
		MaxTeamPlayers: 8,
		Active:         true,
		Level:          5,
		Price:          3000,
	}
	id, err := e.store.Tournaments().Create(context.Background(), tournament)
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	tournament.ID = id
	return tournament
}
