package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
)

// Registration ---------------------------------------------------------------

func (b *Bot) start(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	_, err := b.svc.Players.GetByTgID(ctx, from.ID)
	if err == nil {
		return b.sendMenu(chatID, from.ID)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return b.startRegistration(ctx, chatID, from)
}

func (b *Bot) finishRegistration(ctx context.Context, chatID, tgID int64, gender models.Gender) error {
	return b.withPlayer(ctx, chatID, tgID, func(player *models.Player) error {
		firstTime := player.Gender == nil
		if err := b.svc.Players.SetGender(ctx, player.ID, gender); err != nil {
			return b.reportErr(chatID, err)
		}
		if err := b.svc.Sessions.Clear(ctx, tgID); err != nil {
			return err
		}
		if firstTime {
			text := fmt.Sprintf("Новый игрок: %s", escape(player.FullName()))
			if player.Username != "" {
				text += fmt.Sprintf(" (@%s)", escape(player.Username))
			}
			text += ". Назначьте уровень в /players."
			b.notifyResults(b.svc.Notifier.NotifyAdmins(ctx, text), "notify_register", player.ID)
			b.sendSimple(chatID, "Регистрация завершена. Уровень назначит администратор после первой тренировки.")
		} else {
			b.sendSimple(chatID, "Пол обновлён.")
		}
		return b.sendMenu(chatID, tgID)
	})
}

func genderKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Мужской", callbackData(cbGender, "g", models.GenderMale)),
		tgbotapi.NewInlineKeyboardButtonData("Женский", callbackData(cbGender, "g", models.GenderFemale)),
	))
}

// Menu -----------------------------------------------------------------------

func (b *Bot) sendMenu(chatID, userID int64) error {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏐 Мероприятия", cbEvents)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏆 Турниры", cbTournaments)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👤 Профиль", cbProfile)),
	)
	text := "<b>Главное меню</b>"
	if b.isAdmin(userID) {
		markup.InlineKeyboard = append(markup.InlineKeyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Игроки", callbackData(cbAdmPlayers, "page", 1)),
			tgbotapi.NewInlineKeyboardButtonData("Оплаты", cbAdmPayments),
		))
		text += "\nСоздание: /add_event, /add_tournament"
	}
	return b.sendMarkup(chatID, text, markup)
}

func (b *Bot) sendProfile(chatID int64, player models.Player) error {
	markup := genderKeyboard()
	markup.InlineKeyboard = append(markup.InlineKeyboard,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 Меню", cbMenu)))
	return b.sendMarkup(chatID, profileText(player, b.policy.Scoring()), markup)
}

// Events ---------------------------------------------------------------------

func (b *Bot) sendEvents(ctx context.Context, chatID int64) error {
	active := true
	events, err := b.svc.Events.List(ctx, models.EventFilter{Active: &active})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return b.sendMarkup(chatID, "Ближайших мероприятий нет.",
			tgbotapi.NewInlineKeyboardMarkup(backRow()))
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(events)+1)
	for _, e := range events {
		label := fmt.Sprintf("%s %s", e.Date.In(b.loc).Format("02.01 15:04"), e.Title)
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncateLabel(label, 40), callbackData(cbEvent, "id", e.ID)),
		))
	}
	keyboard = append(keyboard, backRow())
	return b.sendMarkup(chatID, "<b>Мероприятия</b>", tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard})
}

func (b *Bot) showEvent(ctx context.Context, chatID, userID, eventID int64) error {
	event, err := b.svc.Events.Get(ctx, eventID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	var playerID int64
	if player, err := b.svc.Players.GetByTgID(ctx, userID); err == nil {
		playerID = player.ID
	}
	return b.sendMarkup(chatID, eventText(*event, b.loc, b.policy.Scoring()),
		eventKeyboard(*event, playerID, b.isAdmin(userID)))
}

// eventKeyboard offers the actions available to the viewer; playerID is 0
// for an unregistered user.
func eventKeyboard(e models.Event, playerID int64, admin bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if e.Active && playerID != 0 {
		switch {
		case e.HasPlayer(playerID):
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Отменить запись", callbackData(cbEventLeave, "id", e.ID))))
		case e.InReserve(playerID):
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Покинуть резерв", callbackData(cbEventLeave, "id", e.ID))))
		default:
			row := tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Записаться", callbackData(cbEventJoin, "id", e.ID)))
			if e.Price > 0 {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("Я оплатил", callbackData(cbEventPaid, "id", e.ID)))
			}
			rows = append(rows, row)
		}
	}
	if admin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", callbackData(cbAdmEventDel, "id", e.ID))))
	}
	rows = append(rows, backRow())
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) joinEvent(ctx context.Context, chatID int64, player models.Player, eventID int64) error {
	status, err := b.svc.Events.Register(ctx, eventID, player)
	if errors.Is(err, models.ErrValidation) {
		b.sendSimple(chatID, "Ваш уровень не подходит для этого мероприятия.")
		return nil
	}
	if errors.Is(err, models.ErrConflict) {
		b.sendSimple(chatID, "Вы уже записаны.")
		return nil
	}
	if err != nil {
		return b.reportErr(chatID, err)
	}
	event, err := b.svc.Events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	switch status {
	case service.RegistrationJoined:
		b.sendSimple(chatID, fmt.Sprintf("Вы записаны на «%s» %s.", escape(event.Title), formatDate(event.Date, b.loc)))
	case service.RegistrationReserve:
		b.sendSimple(chatID, "Свободных мест нет, вы записаны в резерв. Мы сообщим, если место освободится.")
	case service.RegistrationPending:
		return b.sendMarkup(chatID, fmt.Sprintf(
			"Место забронировано. Оплатите %s и нажмите «Я оплатил», администратор подтвердит запись.",
			formatPrice(event.Price)),
			tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Я оплатил", callbackData(cbEventPaid, "id", eventID)))))
	}
	return nil
}

func (b *Bot) leaveEvent(ctx context.Context, chatID int64, player models.Player, eventID int64) error {
	if _, err := b.svc.Events.Cancel(ctx, eventID, player); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			b.sendSimple(chatID, "Вы не записаны на это мероприятие.")
			return nil
		}
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Запись отменена.")
	return nil
}

func (b *Bot) claimEventPayment(ctx context.Context, chatID int64, player models.Player, eventID int64) error {
	err := b.svc.Payments.ClaimEvent(ctx, eventID, player)
	if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
		b.sendSimple(chatID, "Оплата уже отмечена или вы не записывались.")
		return nil
	}
	if err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Спасибо! Администратор проверит оплату.")
	return nil
}

// Tournaments ----------------------------------------------------------------

func (b *Bot) sendTournaments(ctx context.Context, chatID int64) error {
	active := true
	tournaments, err := b.svc.Tournaments.List(ctx, models.EventFilter{Active: &active})
	if err != nil {
		return err
	}
	if len(tournaments) == 0 {
		return b.sendMarkup(chatID, "Ближайших турниров нет.",
			tgbotapi.NewInlineKeyboardMarkup(backRow()))
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(tournaments)+1)
	for _, t := range tournaments {
		label := fmt.Sprintf("%s %s", t.Date.In(b.loc).Format("02.01 15:04"), t.Title)
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncateLabel(label, 40), callbackData(cbTournament, "id", t.ID)),
		))
	}
	keyboard = append(keyboard, backRow())
	return b.sendMarkup(chatID, "<b>Турниры</b>", tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard})
}

func (b *Bot) showTournament(ctx context.Context, chatID, userID, tournamentID int64) error {
	tournament, err := b.svc.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	main, reserve, err := b.svc.Teams.List(ctx, tournamentID)
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, team := range main {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncateLabel(team.Title, 40), callbackData(cbTeam, "id", team.ID))))
	}
	for _, team := range reserve {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕓 "+truncateLabel(team.Title, 38), callbackData(cbTeam, "id", team.ID))))
	}
	if tournament.Active {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Создать команду", callbackData(cbTeamCreate, "t", tournament.ID))))
	}
	if b.isAdmin(userID) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить турнир", callbackData(cbAdmTournamentDel, "id", tournament.ID))))
	}
	rows = append(rows, backRow())
	return b.sendMarkup(chatID, tournamentText(*tournament, main, reserve, b.loc, b.policy),
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// Teams ----------------------------------------------------------------------

func (b *Bot) showTeam(ctx context.Context, chatID, userID int64, team models.Team) error {
	tournament, err := b.svc.Tournaments.Get(ctx, team.TournamentID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	var playerID int64
	if player, err := b.svc.Players.GetByTgID(ctx, userID); err == nil {
		playerID = player.ID
	}
	return b.sendMarkup(chatID, teamText(team, *tournament, b.policy),
		teamKeyboard(team, *tournament, playerID, b.isAdmin(userID)))
}

func teamKeyboard(team models.Team, t models.Tournament, playerID int64, admin bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if t.Active && playerID != 0 {
		switch {
		case team.LeaderID == playerID:
			row := tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Распустить команду", callbackData(cbTeamLeave, "id", team.ID)))
			if t.Price > 0 {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("Я оплатил", callbackData(cbTeamPaid, "id", team.ID)))
			}
			rows = append(rows, row)
		case team.HasPlayer(playerID):
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Покинуть команду", callbackData(cbTeamLeave, "id", team.ID))))
		default:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Вступить", callbackData(cbTeamJoin, "id", team.ID)),
				tgbotapi.NewInlineKeyboardButtonData("Вступить либеро", callbackData(cbTeamLibero, "id", team.ID)),
			))
		}
	}
	if admin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Снять команду", callbackData(cbAdmTeamDel, "id", team.ID))))
	}
	rows = append(rows, backRow())
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// requestJoin checks the roster rules and forwards an eligible request to
// the captain.
func (b *Bot) requestJoin(ctx context.Context, chatID int64, player models.Player, teamID int64, asLibero bool) error {
	check, err := b.svc.Teams.CheckJoin(ctx, teamID, player, asLibero)
	if errors.Is(err, models.ErrValidation) {
		b.sendSimple(chatID, "Заполните профиль: нужен пол и уровень. Уровень назначает администратор.")
		return nil
	}
	if err != nil {
		return b.reportErr(chatID, err)
	}
	if !check.Decision.Eligible {
		b.sendSimple(chatID, "Нельзя вступить: "+check.Decision.Reason.Message()+".")
		return nil
	}

	var captain *models.Player
	for i := range check.Team.Players {
		if check.Team.Players[i].ID == check.Team.LeaderID {
			captain = &check.Team.Players[i]
			break
		}
	}
	if captain == nil {
		return fmt.Errorf("team %d has no captain on the roster", teamID)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Принять",
			callbackData(cbTeamAccept, "id", teamID, "p", player.ID, "l", boolParam(asLibero))),
		tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить",
			callbackData(cbTeamRefuse, "id", teamID, "p", player.ID)),
	))
	if err := b.sendMarkup(captain.TgID, joinRequestText(check, asLibero, b.policy.Scoring()), markup); err != nil {
		return err
	}
	b.sendSimple(chatID, "Заявка отправлена капитану.")
	return nil
}

func (b *Bot) acceptJoin(ctx context.Context, chatID int64, leader models.Player, teamID, candidateID int64, asLibero bool) error {
	check, err := b.svc.Teams.Accept(ctx, teamID, candidateID, leader.ID, asLibero)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	if !check.Decision.Eligible {
		b.sendSimple(chatID, fmt.Sprintf("%s не может вступить: %s.",
			escape(check.Candidate.FullName()), check.Decision.Reason.Message()))
		return nil
	}
	b.sendSimple(chatID, fmt.Sprintf("%s добавлен в команду «%s».",
		escape(check.Candidate.FullName()), escape(check.Team.Title)))
	return nil
}

func (b *Bot) refuseJoin(ctx context.Context, chatID int64, leader models.Player, teamID, candidateID int64) error {
	if err := b.svc.Teams.Refuse(ctx, teamID, candidateID, leader.ID); err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Заявка отклонена.")
	return nil
}

func (b *Bot) leaveTeam(ctx context.Context, chatID int64, player models.Player, teamID int64) error {
	team, err := b.svc.Teams.Get(ctx, teamID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	if _, err := b.svc.Teams.Leave(ctx, teamID, player); err != nil {
		return b.reportErr(chatID, err)
	}
	if team.LeaderID == player.ID {
		b.sendSimple(chatID, fmt.Sprintf("Команда «%s» распущена.", escape(team.Title)))
		return nil
	}
	b.sendSimple(chatID, fmt.Sprintf("Вы покинули команду «%s».", escape(team.Title)))
	return nil
}

func (b *Bot) claimTeamPayment(ctx context.Context, chatID int64, player models.Player, teamID int64) error {
	err := b.svc.Payments.ClaimTeam(ctx, teamID, player)
	if errors.Is(err, models.ErrConflict) {
		b.sendSimple(chatID, "Оплата уже отмечена.")
		return nil
	}
	if errors.Is(err, models.ErrValidation) {
		b.sendSimple(chatID, "Оплату за команду отмечает капитан.")
		return nil
	}
	if err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Спасибо! Администратор проверит оплату.")
	return nil
}
