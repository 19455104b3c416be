package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/notify"
)

// Players --------------------------------------------------------------------

func (b *Bot) sendPlayersPage(ctx context.Context, chatID int64, page int) error {
	if page < 1 {
		page = 1
	}
	items, hasNext, err := b.svc.Players.List(ctx, page, perPage)
	if err != nil {
		return err
	}
	scoring := b.policy.Scoring()
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("<b>Игроки — страница %d</b>\n", page))
	if len(items) == 0 {
		builder.WriteString("Пока пусто.")
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+2)
	for _, p := range items {
		builder.WriteString(fmt.Sprintf("- %s (%s)\n", escape(p.FullName()), escape(levelLabel(scoring, p))))
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncateLabel(p.FullName(), 30), callbackData(cbAdmPlayer, "id", p.ID, "page", page)),
		))
	}
	row := []tgbotapi.InlineKeyboardButton{}
	if page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅", callbackData(cbAdmPlayers, "page", page-1)))
	}
	if hasNext {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("➡", callbackData(cbAdmPlayers, "page", page+1)))
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 Меню", cbMenu)))
	return b.sendMarkup(chatID, builder.String(), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard})
}

func (b *Bot) showPlayer(ctx context.Context, chatID, playerID int64) error {
	player, err := b.svc.Players.Get(ctx, playerID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	return b.sendMarkup(chatID, profileText(*player, b.policy.Scoring())+"\nНазначить уровень:",
		levelKeyboard(b.policy.Scoring().SortedLevels(), player.ID, b.policy.Scoring().LevelLabel))
}

func levelKeyboard(levels []int, playerID int64, label func(int) string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(levels); i += 2 {
		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label(levels[i]), callbackData(cbAdmLevel, "id", playerID, "lv", levels[i])))
		if i+1 < len(levels) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label(levels[i+1]),
				callbackData(cbAdmLevel, "id", playerID, "lv", levels[i+1])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, backRow())
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) assignLevel(ctx context.Context, chatID, adminID, playerID int64, level int) error {
	if err := b.svc.Players.SetLevel(ctx, playerID, level); err != nil {
		return b.reportErr(chatID, err)
	}
	player, err := b.svc.Players.Get(ctx, playerID)
	if err != nil {
		return err
	}
	b.logger.Info("set_level", "player", playerID, adminID, "ok")
	label := b.policy.Scoring().LevelLabel(level)
	b.notifyResults([]notify.Result{b.svc.Notifier.Notify(ctx, player.TgID,
		fmt.Sprintf("Администратор назначил вам уровень: %s.", escape(label)))}, "notify_level", playerID)
	b.sendSimple(chatID, fmt.Sprintf("%s: уровень %s.", escape(player.FullName()), escape(label)))
	return nil
}

// Payments -------------------------------------------------------------------

func (b *Bot) sendPendingPayments(ctx context.Context, chatID int64) error {
	eventPayments, err := b.svc.Payments.PendingEvents(ctx)
	if err != nil {
		return err
	}
	teamPayments, err := b.svc.Payments.PendingTeams(ctx)
	if err != nil {
		return err
	}
	if len(eventPayments) == 0 && len(teamPayments) == 0 {
		b.sendSimple(chatID, "Неподтверждённых оплат нет.")
		return nil
	}

	events := make(map[int64]*models.Event)
	for _, p := range eventPayments {
		event, ok := events[p.EventID]
		if !ok {
			if event, err = b.svc.Events.Get(ctx, p.EventID); err != nil {
				return err
			}
			events[p.EventID] = event
		}
		player, err := b.svc.Players.Get(ctx, p.PlayerID)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("💳 %s\n«%s» %s, %s",
			escape(player.FullName()), escape(event.Title), formatDate(event.Date, b.loc), formatPrice(event.Price))
		markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", callbackData(cbAdmEventPayOK, "e", p.EventID, "p", p.PlayerID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackData(cbAdmEventPayNo, "e", p.EventID, "p", p.PlayerID)),
		))
		if err := b.sendMarkup(chatID, text, markup); err != nil {
			return err
		}
	}

	for _, p := range teamPayments {
		team, err := b.svc.Teams.Get(ctx, p.TeamID)
		if err != nil {
			return err
		}
		tournament, err := b.svc.Tournaments.Get(ctx, p.TournamentID)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("💳 Команда «%s»\nТурнир «%s» %s, %s",
			escape(team.Title), escape(tournament.Title), formatDate(tournament.Date, b.loc), formatPrice(tournament.Price))
		if team.Reserve {
			text += "\n<i>Команда в резерве</i>"
		}
		markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", callbackData(cbAdmTeamPayOK, "id", p.TeamID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackData(cbAdmTeamPayNo, "id", p.TeamID)),
		))
		if err := b.sendMarkup(chatID, text, markup); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) confirmEventPayment(ctx context.Context, chatID, adminID, eventID, playerID int64) error {
	outcome, err := b.svc.Payments.ConfirmEvent(ctx, eventID, playerID, adminID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	if outcome.RefundRequired {
		b.sendSimple(chatID, "Оплата подтверждена, но мест нет: игрок переведён в резерв. Верните оплату.")
		return nil
	}
	b.sendSimple(chatID, "Оплата подтверждена.")
	return nil
}

func (b *Bot) rejectEventPayment(ctx context.Context, chatID, adminID, eventID, playerID int64) error {
	if err := b.svc.Payments.RejectEvent(ctx, eventID, playerID, adminID); err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Оплата отклонена.")
	return nil
}

func (b *Bot) confirmTeamPayment(ctx context.Context, chatID, adminID, teamID int64) error {
	outcome, err := b.svc.Payments.ConfirmTeam(ctx, teamID, adminID)
	if err != nil {
		return b.reportErr(chatID, err)
	}
	if outcome.RefundRequired {
		b.sendSimple(chatID, "Оплата подтверждена. Команда в резерве: верните оплату, если она не попадёт в основной состав.")
		return nil
	}
	b.sendSimple(chatID, "Оплата подтверждена.")
	return nil
}

func (b *Bot) rejectTeamPayment(ctx context.Context, chatID, adminID, teamID int64) error {
	if err := b.svc.Payments.RejectTeam(ctx, teamID, adminID); err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Оплата отклонена.")
	return nil
}

// Removal --------------------------------------------------------------------

func (b *Bot) deleteEvent(ctx context.Context, chatID, adminID, eventID int64) error {
	if err := b.svc.Events.Delete(ctx, eventID, adminID); err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Мероприятие удалено, участники уведомлены.")
	return nil
}

func (b *Bot) deleteTournament(ctx context.Context, chatID, adminID, tournamentID int64) error {
	if err := b.svc.Tournaments.Delete(ctx, tournamentID, adminID); err != nil {
		return b.reportErr(chatID, err)
	}
	b.sendSimple(chatID, "Турнир удалён, участники уведомлены.")
	return nil
}

func (b *Bot) removeTeam(ctx context.Context, chatID, adminID, teamID int64) error {
	promotion, err := b.svc.Teams.Remove(ctx, teamID, adminID, "решение администратора")
	if err != nil {
		return b.reportErr(chatID, err)
	}
	text := "Команда снята с турнира."
	if promotion != nil && promotion.Team != nil {
		text += fmt.Sprintf(" Из резерва переведена команда «%s».", escape(promotion.Team.Title))
	}
	b.sendSimple(chatID, text)
	return nil
}

// notifyResults logs failed deliveries of a notification sent by the bot.
func (b *Bot) notifyResults(results []notify.Result, action string, entityID int64) {
	for _, r := range notify.Failed(results) {
		b.logger.Error(r.Err, action, "player", entityID, r.TgID)
	}
}
