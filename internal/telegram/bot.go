package telegram

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
	"github.com/w3qxst1ck/volleyballScheduler/internal/session"
)

const (
	perPage     = 20
	maxNavDepth = 10
)

// botAPI is the part of tgbotapi.BotAPI the bot talks to.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Services struct {
	Players     service.PlayersService
	Events      service.EventsService
	Tournaments service.TournamentsService
	Teams       service.TeamsService
	Payments    service.PaymentsService
	Sessions    *session.Store
	Notifier    notify.Notifier
}

type navEntry = models.NavigationEntry

type debugLogger interface {
	Debug(action string, actorID int64, detail string)
}

type Bot struct {
	api    botAPI
	admins map[int64]struct{}
	svc    Services
	policy *roster.Policy
	logger repository.Logger
	loc    *time.Location
	// lock is shared with the scheduled jobs so roster changes never
	// interleave with a job run.
	lock  sync.Locker
	navMu sync.Mutex
	nav   map[int64][]navEntry
}

func NewBot(api botAPI, adminIDs []int64, loc *time.Location, svc Services, policy *roster.Policy, logger repository.Logger, lock sync.Locker) *Bot {
	adminMap := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		adminMap[id] = struct{}{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Bot{
		api:    api,
		admins: adminMap,
		svc:    svc,
		policy: policy,
		logger: logger,
		loc:    loc,
		lock:   lock,
		nav:    make(map[int64][]navEntry),
	}
}

func (b *Bot) pushNav(ctx context.Context, userID int64, entry navEntry) {
	if entry.Action == "" {
		return
	}
	b.navMu.Lock()
	stack := b.nav[userID]
	if len(stack) > 0 {
		last := stack[len(stack)-1]
		if last.Action == entry.Action && compareParamMaps(last.Params, entry.Params) {
			b.navMu.Unlock()
			return
		}
	}
	stack = append(stack, entry)
	if len(stack) > maxNavDepth {
		stack = stack[1:]
	}
	b.nav[userID] = stack
	snapshot := make([]navEntry, len(stack))
	copy(snapshot, stack)
	b.navMu.Unlock()
	b.persistNav(ctx, userID, snapshot)
}

func (b *Bot) popNav(ctx context.Context, userID int64) (navEntry, bool) {
	b.navMu.Lock()
	stack := b.nav[userID]
	if len(stack) == 0 {
		b.navMu.Unlock()
		return navEntry{}, false
	}
	entry := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(b.nav, userID)
	} else {
		b.nav[userID] = stack
	}
	snapshot := make([]navEntry, len(stack))
	copy(snapshot, stack)
	b.navMu.Unlock()
	b.persistNav(ctx, userID, snapshot)
	return entry, true
}

func (b *Bot) clearNav(userID int64) {
	b.navMu.Lock()
	delete(b.nav, userID)
	b.navMu.Unlock()
}

// persistNav stores the stack alone; navigating away drops an unfinished
// wizard.
func (b *Bot) persistNav(ctx context.Context, userID int64, stack []navEntry) {
	if err := b.svc.Sessions.Save(ctx, userID, "", nil, stack); err != nil {
		b.logger.Error(err, "persist_nav", "nav", int64(len(stack)), userID)
	}
}

func (b *Bot) snapshotNav(userID int64) []navEntry {
	b.navMu.Lock()
	defer b.navMu.Unlock()
	stack := b.nav[userID]
	if len(stack) == 0 {
		return nil
	}
	entries := make([]navEntry, len(stack))
	copy(entries, stack)
	return entries
}

func (b *Bot) restoreNav(userID int64, entries []navEntry) {
	b.navMu.Lock()
	defer b.navMu.Unlock()
	if len(entries) == 0 {
		delete(b.nav, userID)
		return
	}
	if len(entries) > maxNavDepth {
		entries = entries[len(entries)-maxNavDepth:]
	}
	stack := make([]navEntry, len(entries))
	copy(stack, entries)
	b.nav[userID] = stack
}

func (b *Bot) saveSession(ctx context.Context, userID int64, state *wizardState) error {
	return b.svc.Sessions.Save(ctx, userID, state.Flow, state, b.snapshotNav(userID))
}

func (b *Bot) handleNavEntry(ctx context.Context, chatID, userID int64, entry navEntry) error {
	switch entry.Action {
	case cbMenu:
		return b.sendMenu(chatID, userID)
	case cbEvents:
		return b.sendEvents(ctx, chatID)
	case cbTournaments:
		return b.sendTournaments(ctx, chatID)
	case cbTournament:
		return b.showTournament(ctx, chatID, userID, parseInt64(entry.Params["id"]))
	case cbAdmPlayers:
		return b.sendPlayersPage(ctx, chatID, parseIntParam(entry.Params, "page", 1))
	default:
		b.sendSimple(chatID, "Вернуться не удалось.")
		return nil
	}
}

// Run consumes updates until ctx is cancelled. Each update is handled while
// holding the shared lock.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.lock.Lock()
			err := b.handleUpdate(ctx, update)
			b.lock.Unlock()
			if err != nil {
				b.logger.Error(err, "handle_update", "update", int64(update.UpdateID), senderID(update))
			}
		}
	}
}

func senderID(update tgbotapi.Update) int64 {
	if from := update.SentFrom(); from != nil {
		return from.ID
	}
	return 0
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message != nil {
		return b.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		return b.handleCallback(ctx, update.CallbackQuery)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.debug("command", userID, msg.Command())
		b.clearNav(userID)
		if err := b.svc.Sessions.Clear(ctx, userID); err != nil {
			return err
		}
		return b.handleCommand(ctx, msg)
	}

	state := &wizardState{}
	var navState []navEntry
	flow, err := b.svc.Sessions.Load(ctx, userID, state, &navState)
	if err != nil {
		return err
	}
	b.restoreNav(userID, navState)
	if flow == "" || state.Flow == "" {
		b.sendSimple(chatID, "Откройте меню: /menu")
		return nil
	}
	if state.Data == nil {
		state.Data = make(map[string]string)
	}
	return b.advanceWizard(ctx, msg, state)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		return b.start(ctx, chatID, msg.From)
	case "menu":
		return b.withPlayer(ctx, chatID, userID, func(*models.Player) error {
			return b.sendMenu(chatID, userID)
		})
	case "events":
		return b.sendEvents(ctx, chatID)
	case "tournaments":
		return b.sendTournaments(ctx, chatID)
	case "profile":
		return b.withPlayer(ctx, chatID, userID, func(p *models.Player) error {
			return b.sendProfile(chatID, *p)
		})
	case "cancel":
		b.sendSimple(chatID, "Действие отменено.")
		return nil
	case "add_event", "add_tournament", "players", "payments":
		if !b.isAdmin(userID) {
			b.sendSimple(chatID, "Команда доступна только администраторам.")
			return nil
		}
		switch msg.Command() {
		case "add_event":
			return b.startEventWizard(ctx, chatID, userID)
		case "add_tournament":
			return b.startTournamentWizard(ctx, chatID, userID)
		case "players":
			return b.sendPlayersPage(ctx, chatID, 1)
		default:
			return b.sendPendingPayments(ctx, chatID)
		}
	default:
		b.sendSimple(chatID, "Неизвестная команда.")
		return nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	payload, err := parseCallback(cb.Data)
	if err != nil {
		b.answer(cb.ID, "Некорректная кнопка")
		return nil
	}
	b.debug("callback", userID, cb.Data)
	if isAdminAction(payload.Action) && !b.isAdmin(userID) {
		b.answer(cb.ID, "Недостаточно прав")
		return nil
	}
	defer b.answer(cb.ID, "")

	id := payload.int64("id")
	switch payload.Action {
	case cbMenu:
		b.clearNav(userID)
		return b.sendMenu(chatID, userID)
	case cbBack:
		entry, ok := b.popNav(ctx, userID)
		if !ok {
			return b.sendMenu(chatID, userID)
		}
		return b.handleNavEntry(ctx, chatID, userID, entry)
	case cbGender:
		return b.finishRegistration(ctx, chatID, userID, models.Gender(payload.Params["g"]))
	case cbEvents:
		b.pushNav(ctx, userID, navEntry{Action: cbMenu})
		return b.sendEvents(ctx, chatID)
	case cbEvent:
		b.pushNav(ctx, userID, navEntry{Action: cbEvents})
		return b.showEvent(ctx, chatID, userID, id)
	case cbTournaments:
		b.pushNav(ctx, userID, navEntry{Action: cbMenu})
		return b.sendTournaments(ctx, chatID)
	case cbTournament:
		b.pushNav(ctx, userID, navEntry{Action: cbTournaments})
		return b.showTournament(ctx, chatID, userID, id)
	case cbTeam:
		team, err := b.svc.Teams.Get(ctx, id)
		if err != nil {
			return b.reportErr(chatID, err)
		}
		b.pushNav(ctx, userID, navEntry{
			Action: cbTournament,
			Params: map[string]string{"id": strconv.FormatInt(team.TournamentID, 10)},
		})
		return b.showTeam(ctx, chatID, userID, *team)
	case cbAdmPlayers:
		return b.sendPlayersPage(ctx, chatID, parseIntParam(payload.Params, "page", 1))
	case cbAdmPlayer:
		page := parseIntParam(payload.Params, "page", 1)
		b.pushNav(ctx, userID, navEntry{
			Action: cbAdmPlayers,
			Params: map[string]string{"page": strconv.Itoa(page)},
		})
		return b.showPlayer(ctx, chatID, id)
	case cbAdmLevel:
		return b.assignLevel(ctx, chatID, userID, id, parseIntParam(payload.Params, "lv", 0))
	case cbAdmPayments:
		return b.sendPendingPayments(ctx, chatID)
	case cbAdmEventPayOK:
		return b.confirmEventPayment(ctx, chatID, userID, payload.int64("e"), payload.int64("p"))
	case cbAdmEventPayNo:
		return b.rejectEventPayment(ctx, chatID, userID, payload.int64("e"), payload.int64("p"))
	case cbAdmTeamPayOK:
		return b.confirmTeamPayment(ctx, chatID, userID, id)
	case cbAdmTeamPayNo:
		return b.rejectTeamPayment(ctx, chatID, userID, id)
	case cbAdmEventDel:
		return b.deleteEvent(ctx, chatID, userID, id)
	case cbAdmTournamentDel:
		return b.deleteTournament(ctx, chatID, userID, id)
	case cbAdmTeamDel:
		return b.removeTeam(ctx, chatID, userID, id)
	}

	// Everything below acts on behalf of a registered player.
	return b.withPlayer(ctx, chatID, userID, func(player *models.Player) error {
		switch payload.Action {
		case cbProfile:
			return b.sendProfile(chatID, *player)
		case cbEventJoin:
			return b.joinEvent(ctx, chatID, *player, id)
		case cbEventLeave:
			return b.leaveEvent(ctx, chatID, *player, id)
		case cbEventPaid:
			return b.claimEventPayment(ctx, chatID, *player, id)
		case cbTeamCreate:
			return b.startTeamWizard(ctx, chatID, userID, payload.int64("t"))
		case cbTeamJoin, cbTeamLibero:
			return b.requestJoin(ctx, chatID, *player, id, payload.Action == cbTeamLibero)
		case cbTeamAccept:
			return b.acceptJoin(ctx, chatID, *player, id, payload.int64("p"), payload.flag("l"))
		case cbTeamRefuse:
			return b.refuseJoin(ctx, chatID, *player, id, payload.int64("p"))
		case cbTeamLeave:
			return b.leaveTeam(ctx, chatID, *player, id)
		case cbTeamPaid:
			return b.claimTeamPayment(ctx, chatID, *player, id)
		default:
			b.sendSimple(chatID, "Кнопка устарела.")
			return nil
		}
	})
}

func isAdminAction(action string) bool {
	return len(action) > 2 && action[:2] == "a_"
}

func (b *Bot) isAdmin(id int64) bool {
	_, ok := b.admins[id]
	return ok
}

// withPlayer runs fn for a registered player and asks everyone else to
// register first.
func (b *Bot) withPlayer(ctx context.Context, chatID, tgID int64, fn func(*models.Player) error) error {
	player, err := b.svc.Players.GetByTgID(ctx, tgID)
	if errors.Is(err, models.ErrNotFound) {
		b.sendSimple(chatID, "Сначала зарегистрируйтесь: /start")
		return nil
	}
	if err != nil {
		return err
	}
	return fn(player)
}

// ----------------------------------------------------------------------------
// Replies

func (b *Bot) sendSimple(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error(err, "send", "chat", chatID, 0)
	}
}

func (b *Bot) sendMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(markup.InlineKeyboard) > 0 {
		msg.ReplyMarkup = markup
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) answer(callbackID, text string) {
	_, _ = b.api.Request(tgbotapi.NewCallback(callbackID, text))
}

func (b *Bot) debug(action string, actorID int64, detail string) {
	if d, ok := b.logger.(debugLogger); ok {
		d.Debug(action, actorID, detail)
	}
}

// reportErr tells the user what went wrong. Expected domain errors are
// consumed; anything else is returned for logging.
func (b *Bot) reportErr(chatID int64, err error) error {
	text, expected := userMessage(err)
	b.sendSimple(chatID, text)
	if expected {
		return nil
	}
	return err
}

func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "Запись не найдена.", true
	case errors.Is(err, models.ErrConflict):
		return "Это уже сделано.", true
	case errors.Is(err, models.ErrInactive):
		return "Запись закрыта.", true
	case errors.Is(err, models.ErrValidation):
		return "Некорректные данные.", true
	default:
		return "Что-то пошло не так, попробуйте позже.", false
	}
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅ Назад", cbBack),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Меню", cbMenu),
	)
}
