package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/w3qxst1ck/volleyballScheduler/internal/models"
	"github.com/w3qxst1ck/volleyballScheduler/internal/roster"
	"github.com/w3qxst1ck/volleyballScheduler/internal/service"
)

const dateLayout = "02.01.2006 15:04"

var weekdays = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

var printer = message.NewPrinter(language.Russian)

func escape(s string) string {
	return html.EscapeString(s)
}

func formatPrice(price int) string {
	if price <= 0 {
		return "бесплатно"
	}
	return printer.Sprintf("%d ₽", price)
}

func formatDate(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%s (%s)", local.Format(dateLayout), weekdays[local.Weekday()])
}

// parseDate reads "ДД.ММ.ГГГГ ЧЧ:ММ" in the club time zone.
func parseDate(text string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(text), loc)
}

// parseIntPair reads two whitespace separated non-negative numbers, e.g.
// "4 8".
func parseIntPair(text string) (int, int, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want two numbers, got %q", text)
	}
	a, err := strconv.Atoi(fields[0])
	if err != nil || a < 0 {
		return 0, 0, fmt.Errorf("bad number %q", fields[0])
	}
	b, err := strconv.Atoi(fields[1])
	if err != nil || b < 0 {
		return 0, 0, fmt.Errorf("bad number %q", fields[1])
	}
	return a, b, nil
}

func parseNonNegative(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad number %q", text)
	}
	return n, nil
}

func truncateLabel(label string, max int) string {
	runes := []rune(label)
	if len(runes) <= max {
		return label
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func genderLabel(g *models.Gender) string {
	if g == nil {
		return "не указан"
	}
	switch *g {
	case models.GenderMale:
		return "мужской"
	case models.GenderFemale:
		return "женский"
	default:
		return string(*g)
	}
}

func levelLabel(scoring roster.Scoring, p models.Player) string {
	if p.Level == nil {
		return "не назначен"
	}
	return scoring.LevelLabel(*p.Level)
}

func eventText(e models.Event, loc *time.Location, scoring roster.Scoring) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escape(e.Title))
	fmt.Fprintf(&b, "🗓 %s\n", formatDate(e.Date, loc))
	if e.Level > 0 {
		fmt.Fprintf(&b, "Уровень: от %s\n", escape(scoring.LevelLabel(e.Level)))
	}
	fmt.Fprintf(&b, "Стоимость: %s\n", formatPrice(e.Price))
	fmt.Fprintf(&b, "Мест: %d/%d", len(e.Players), e.Places)
	if e.MinUserCount > 0 {
		fmt.Fprintf(&b, " (минимум %d)", e.MinUserCount)
	}
	b.WriteString("\n")
	if !e.Active {
		b.WriteString("<i>Запись закрыта</i>\n")
	}
	if len(e.Players) > 0 {
		b.WriteString("\n<b>Участники:</b>\n")
		for i, p := range e.Players {
			fmt.Fprintf(&b, "%d. %s\n", i+1, escape(p.FullName()))
		}
	}
	if len(e.Reserve) > 0 {
		b.WriteString("\n<b>Резерв:</b>\n")
		for i, r := range e.Reserve {
			fmt.Fprintf(&b, "%d. %s\n", i+1, escape(r.Player.FullName()))
		}
	}
	return b.String()
}

func tournamentText(t models.Tournament, main, reserve []models.Team, loc *time.Location, policy *roster.Policy) string {
	scoring := policy.Scoring()
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escape(t.Title))
	fmt.Fprintf(&b, "🗓 %s\n", formatDate(t.Date, loc))
	limit, _ := scoring.Cap(t.Level)
	fmt.Fprintf(&b, "Уровень: %s, лимит %d баллов\n", escape(scoring.LevelLabel(t.Level)), limit)
	fmt.Fprintf(&b, "Стоимость с команды: %s\n", formatPrice(t.Price))
	fmt.Fprintf(&b, "Команды: %d/%d (минимум %d)\n", len(main), t.MaxTeamCount, t.MinTeamCount)
	fmt.Fprintf(&b, "Игроков в команде: %d–%d\n", t.MinTeamPlayers, t.MaxTeamPlayers)
	if !t.Active {
		b.WriteString("<i>Регистрация закрыта</i>\n")
	}
	if len(main) > 0 {
		b.WriteString("\n<b>Основной состав:</b>\n")
		for i, team := range main {
			fmt.Fprintf(&b, "%d. %s — %d чел., %d баллов\n", i+1, escape(team.Title), len(team.Players), policy.Points(team))
		}
	}
	if len(reserve) > 0 {
		b.WriteString("\n<b>Резерв:</b>\n")
		for i, team := range reserve {
			fmt.Fprintf(&b, "%d. %s — %d чел., %d баллов\n", i+1, escape(team.Title), len(team.Players), policy.Points(team))
		}
	}
	return b.String()
}

func teamText(team models.Team, t models.Tournament, policy *roster.Policy) string {
	scoring := policy.Scoring()
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escape(team.Title))
	fmt.Fprintf(&b, "Турнир: %s\n", escape(t.Title))
	limit, _ := scoring.Cap(t.Level)
	fmt.Fprintf(&b, "Баллы: %d/%d\n", policy.Points(team), limit)
	if team.Reserve {
		b.WriteString("<i>Команда в резерве</i>\n")
	}
	b.WriteString("\n<b>Состав:</b>\n")
	for i, p := range team.Players {
		marks := ""
		if p.ID == team.LeaderID {
			marks += " 👑"
		}
		if team.IsLibero(p.ID) {
			marks += " (либеро)"
		}
		fmt.Fprintf(&b, "%d. %s — %s, %d б.%s\n", i+1, escape(p.FullName()),
			escape(levelLabel(scoring, p)), scoring.PlayerPoints(p), marks)
	}
	return b.String()
}

func profileText(p models.Player, scoring roster.Scoring) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escape(p.FullName()))
	if p.Username != "" {
		fmt.Fprintf(&b, "@%s\n", escape(p.Username))
	}
	fmt.Fprintf(&b, "Пол: %s\n", genderLabel(p.Gender))
	fmt.Fprintf(&b, "Уровень: %s\n", escape(levelLabel(scoring, p)))
	return b.String()
}

// joinRequestText is what the captain sees before accepting a player.
func joinRequestText(check service.JoinCheck, asLibero bool, scoring roster.Scoring) string {
	var b strings.Builder
	p := check.Candidate
	role := "игроком"
	if asLibero {
		role = "либеро"
	}
	fmt.Fprintf(&b, "<b>%s</b> (%s, %d б.) хочет вступить в команду «%s» %s.\n",
		escape(p.FullName()), escape(levelLabel(scoring, p)), scoring.PlayerPoints(p), escape(check.Team.Title), role)
	fmt.Fprintf(&b, "Баллы команды после вступления: %d/%d\n", check.Decision.Points, check.Decision.Cap)
	if check.Decision.WrongLevel {
		b.WriteString("⚠ Уровень игрока не допускается для основного состава, но разрешён для либеро.\n")
	}
	if removed := check.Decision.RemovedLibero; removed != nil {
		fmt.Fprintf(&b, "⚠ Текущий либеро %s будет исключён из команды.\n", escape(removed.FullName()))
	}
	return b.String()
}
