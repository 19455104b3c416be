package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
)

const (
	flowRegister        = "register"
	flowAddEvent        = "add_event"
	flowAddTournament   = "add_tournament"
	flowCreateTeam      = "create_team"
	flowRegisterPending = "register_gender"
)

type wizardState struct {
	Flow string            `json:"flow"`
	Step int               `json:"step"`
	Data map[string]string `json:"data"`
}

func newWizard(flow string) *wizardState {
	return &wizardState{Flow: flow, Data: make(map[string]string)}
}

func (b *Bot) advanceWizard(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	switch state.Flow {
	case flowRegister:
		return b.advanceRegistration(ctx, msg, state)
	case flowRegisterPending:
		return b.sendMarkup(msg.Chat.ID, "Выберите пол кнопкой ниже.", genderKeyboard())
	case flowAddEvent:
		return b.advanceEventWizard(ctx, msg, state)
	case flowAddTournament:
		return b.advanceTournamentWizard(ctx, msg, state)
	case flowCreateTeam:
		return b.advanceTeamWizard(ctx, msg, state)
	default:
		return b.svc.Sessions.Clear(ctx, msg.From.ID)
	}
}

// Registration ---------------------------------------------------------------

func (b *Bot) startRegistration(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state := newWizard(flowRegister)
	state.Data["username"] = from.UserName
	if err := b.saveSession(ctx, from.ID, state); err != nil {
		return err
	}
	b.sendSimple(chatID, "Добро пожаловать в волейбольный клуб! Для регистрации введите имя и фамилию, например: <i>Иван Петров</i>.")
	return nil
}

func (b *Bot) advanceRegistration(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	chatID := msg.Chat.ID
	_, err := b.svc.Players.Register(ctx, service.RegisterPlayerInput{
		TgID:     msg.From.ID,
		Username: state.Data["username"],
		FullName: msg.Text,
	})
	switch {
	case errors.Is(err, models.ErrValidation):
		b.sendSimple(chatID, "Введите имя и фамилию через пробел, только буквы. Например: <i>Иван Петров</i>.")
		return nil
	case errors.Is(err, models.ErrConflict):
		if err := b.svc.Sessions.Clear(ctx, msg.From.ID); err != nil {
			return err
		}
		return b.sendMenu(chatID, msg.From.ID)
	case err != nil:
		return err
	}

	state.Flow = flowRegisterPending
	state.Step++
	if err := b.saveSession(ctx, msg.From.ID, state); err != nil {
		return err
	}
	return b.sendMarkup(chatID, "Укажите пол:", genderKeyboard())
}

// Events ---------------------------------------------------------------------

func (b *Bot) startEventWizard(ctx context.Context, chatID, adminID int64) error {
	if err := b.saveSession(ctx, adminID, newWizard(flowAddEvent)); err != nil {
		return err
	}
	b.sendSimple(chatID, "Новое мероприятие: введите название.")
	return nil
}

func (b *Bot) advanceEventWizard(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	text := strings.TrimSpace(msg.Text)
	adminID := msg.From.ID
	chatID := msg.Chat.ID

	switch state.Step {
	case 0:
		if text == "" {
			b.sendSimple(chatID, "Название не может быть пустым.")
			return nil
		}
		state.Data["title"] = text
		b.sendSimple(chatID, "Дата и время в формате ДД.ММ.ГГГГ ЧЧ:ММ.")
	case 1:
		date, err := parseDate(text, b.loc)
		if err != nil {
			b.sendSimple(chatID, "Неверный формат. Пример: 15.03.2025 19:00.")
			return nil
		}
		state.Data["date"] = date.Format(dateLayout)
		b.sendSimple(chatID, "Количество мест.")
	case 2:
		places, err := parseNonNegative(text)
		if err != nil || places == 0 {
			b.sendSimple(chatID, "Введите положительное число.")
			return nil
		}
		state.Data["places"] = strconv.Itoa(places)
		b.sendSimple(chatID, "Минимум участников, иначе мероприятие отменится (0, если не нужен).")
	case 3:
		minUsers, err := parseNonNegative(text)
		if err != nil {
			b.sendSimple(chatID, "Введите число.")
			return nil
		}
		state.Data["min_users"] = strconv.Itoa(minUsers)
		b.sendSimple(chatID, "Минимальный уровень игроков:\n"+b.levelHint()+"\n0, если без ограничений.")
	case 4:
		level, err := parseNonNegative(text)
		if err != nil {
			b.sendSimple(chatID, "Введите число.")
			return nil
		}
		state.Data["level"] = strconv.Itoa(level)
		b.sendSimple(chatID, "Стоимость в рублях (0, если бесплатно).")
	case 5:
		price, err := parseNonNegative(text)
		if err != nil {
			b.sendSimple(chatID, "Введите число.")
			return nil
		}
		state.Data["price"] = strconv.Itoa(price)
		id, err := b.finishEventWizard(ctx, state)
		if errors.Is(err, models.ErrValidation) {
			b.sendSimple(chatID, "Мероприятие не создано: проверьте дату в будущем и что минимум не больше числа мест. Начните заново: /add_event")
			return b.svc.Sessions.Clear(ctx, adminID)
		}
		if err != nil {
			return err
		}
		b.logger.Info("create", "event", id, adminID, "ok")
		b.sendSimple(chatID, "Мероприятие создано.")
		return b.svc.Sessions.Clear(ctx, adminID)
	}

	state.Step++
	return b.saveSession(ctx, adminID, state)
}

func (b *Bot) finishEventWizard(ctx context.Context, state *wizardState) (int64, error) {
	date, err := parseDate(state.Data["date"], b.loc)
	if err != nil {
		return 0, err
	}
	places, _ := strconv.Atoi(state.Data["places"])
	minUsers, _ := strconv.Atoi(state.Data["min_users"])
	level, _ := strconv.Atoi(state.Data["level"])
	price, _ := strconv.Atoi(state.Data["price"])
	return b.svc.Events.Create(ctx, service.CreateEventInput{
		Title:        state.Data["title"],
		Date:         date,
		Places:       places,
		MinUserCount: minUsers,
		Level:        level,
		Price:        price,
	})
}

func (b *Bot) levelHint() string {
	scoring := b.policy.Scoring()
	var lines []string
	for _, level := range scoring.SortedLevels() {
		lines = append(lines, fmt.Sprintf("%d — %s", level, escape(scoring.LevelLabel(level))))
	}
	return strings.Join(lines, "\n")
}

// Tournaments ----------------------------------------------------------------

func (b *Bot) startTournamentWizard(ctx context.Context, chatID, adminID int64) error {
	if err := b.saveSession(ctx, adminID, newWizard(flowAddTournament)); err != nil {
		return err
	}
	b.sendSimple(chatID, "Новый турнир: введите название.")
	return nil
}

func (b *Bot) advanceTournamentWizard(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	text := strings.TrimSpace(msg.Text)
	adminID := msg.From.ID
	chatID := msg.Chat.ID

	switch state.Step {
	case 0:
		if text == "" {
			b.sendSimple(chatID, "Название не может быть пустым.")
			return nil
		}
		state.Data["title"] = text
		b.sendSimple(chatID, "Дата и время в формате ДД.ММ.ГГГГ ЧЧ:ММ.")
	case 1:
		date, err := parseDate(text, b.loc)
		if err != nil {
			b.sendSimple(chatID, "Неверный формат. Пример: 15.03.2025 10:00.")
			return nil
		}
		state.Data["date"] = date.Format(dateLayout)
		b.sendSimple(chatID, "Минимум и максимум команд через пробел, например: 4 8.")
	case 2:
		minTeams, maxTeams, err := parseIntPair(text)
		if err != nil || maxTeams == 0 || minTeams > maxTeams {
			b.sendSimple(chatID, "Введите два числа, минимум не больше максимума.")
			return nil
		}
		state.Data["min_teams"] = strconv.Itoa(minTeams)
		state.Data["max_teams"] = strconv.Itoa(maxTeams)
		b.sendSimple(chatID, "Минимум и максимум игроков в команде, например: 4 6.")
	case 3:
		minPlayers, maxPlayers, err := parseIntPair(text)
		if err != nil || maxPlayers == 0 || minPlayers > maxPlayers {
			b.sendSimple(chatID, "Введите два числа, минимум не больше максимума.")
			return nil
		}
		state.Data["min_players"] = strconv.Itoa(minPlayers)
		state.Data["max_players"] = strconv.Itoa(maxPlayers)
		b.sendSimple(chatID, "Уровень турнира:\n"+b.tierHint())
	case 4:
		level, err := parseNonNegative(text)
		if _, ok := b.policy.Scoring().Cap(level); err != nil || !ok {
			b.sendSimple(chatID, "Выберите уровень из списка:\n"+b.tierHint())
			return nil
		}
		state.Data["level"] = strconv.Itoa(level)
		b.sendSimple(chatID, "Стоимость с команды в рублях (0, если бесплатно).")
	case 5:
		price, err := parseNonNegative(text)
		if err != nil {
			b.sendSimple(chatID, "Введите число.")
			return nil
		}
		state.Data["price"] = strconv.Itoa(price)
		id, err := b.finishTournamentWizard(ctx, state)
		if errors.Is(err, models.ErrValidation) {
			b.sendSimple(chatID, "Турнир не создан: дата должна быть в будущем. Начните заново: /add_tournament")
			return b.svc.Sessions.Clear(ctx, adminID)
		}
		if err != nil {
			return err
		}
		b.logger.Info("create", "tournament", id, adminID, "ok")
		b.sendSimple(chatID, "Турнир создан.")
		return b.svc.Sessions.Clear(ctx, adminID)
	}

	state.Step++
	return b.saveSession(ctx, adminID, state)
}

func (b *Bot) finishTournamentWizard(ctx context.Context, state *wizardState) (int64, error) {
	date, err := parseDate(state.Data["date"], b.loc)
	if err != nil {
		return 0, err
	}
	atoi := func(key string) int {
		n, _ := strconv.Atoi(state.Data[key])
		return n
	}
	return b.svc.Tournaments.Create(ctx, service.CreateTournamentInput{
		Title:          state.Data["title"],
		Date:           date,
		MinTeamCount:   atoi("min_teams"),
		MaxTeamCount:   atoi("max_teams"),
		MinTeamPlayers: atoi("min_players"),
		MaxTeamPlayers: atoi("max_players"),
		Level:          atoi("level"),
		Price:          atoi("price"),
	})
}

func (b *Bot) tierHint() string {
	scoring := b.policy.Scoring()
	var lines []string
	for _, level := range scoring.SortedTiers() {
		limit, _ := scoring.Cap(level)
		lines = append(lines, fmt.Sprintf("%d — %s, лимит %d баллов", level, escape(scoring.LevelLabel(level)), limit))
	}
	return strings.Join(lines, "\n")
}

// Teams ----------------------------------------------------------------------

func (b *Bot) startTeamWizard(ctx context.Context, chatID, userID, tournamentID int64) error {
	state := newWizard(flowCreateTeam)
	state.Data["tournament"] = strconv.FormatInt(tournamentID, 10)
	if err := b.saveSession(ctx, userID, state); err != nil {
		return err
	}
	b.sendSimple(chatID, "Введите название команды (до 30 символов).")
	return nil
}

func (b *Bot) advanceTeamWizard(ctx context.Context, msg *tgbotapi.Message, state *wizardState) error {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	return b.withPlayer(ctx, chatID, userID, func(leader *models.Player) error {
		team, decision, err := b.svc.Teams.Create(ctx, service.CreateTeamInput{
			TournamentID: parseInt64(state.Data["tournament"]),
			Title:        msg.Text,
			Leader:       *leader,
		})
		switch {
		case errors.Is(err, models.ErrValidation):
			if leader.Level == nil || leader.Gender == nil {
				b.sendSimple(chatID, "Заполните профиль: нужен пол и уровень. Уровень назначает администратор.")
				return b.svc.Sessions.Clear(ctx, userID)
			}
			b.sendSimple(chatID, "Название должно быть от 1 до 30 символов. Попробуйте ещё раз.")
			return nil
		case errors.Is(err, models.ErrConflict):
			b.sendSimple(chatID, "Команда с таким названием уже есть. Введите другое.")
			return nil
		case err != nil:
			if clearErr := b.svc.Sessions.Clear(ctx, userID); clearErr != nil {
				return clearErr
			}
			return b.reportErr(chatID, err)
		}
		if err := b.svc.Sessions.Clear(ctx, userID); err != nil {
			return err
		}
		if !decision.Eligible {
			b.sendSimple(chatID, "Нельзя создать команду: "+decision.Reason.Message()+".")
			return nil
		}
		text := fmt.Sprintf("Команда «%s» создана, вы капитан.", escape(team.Title))
		if team.Reserve {
			text += " Мест в основном составе нет, команда записана в резерв."
		}
		b.sendSimple(chatID, text)
		return b.showTeam(ctx, chatID, userID, *team)
	})
}
