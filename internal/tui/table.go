package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/registration"
)

var userHeaders = []string{"", "ID", "NAME", "GITAM EMAIL", "BRANCH", "YEAR", "ACCESS", "GAME", "LAST ACTIVE"}

// UsersTable renders the admin listing. Times are shown relative to now.
func UsersTable(rows []registration.UserRow, now time.Time) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(userHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		t.Row(
			marker(r),
			r.ID,
			r.Name,
			r.GitamEmail,
			r.Branch,
			r.Year,
			accessCell(r.GameAccess),
			gameCell(r.CurrentGame),
			LastActive(r.LastActive, now),
		)
	}
	return t.Render()
}

func marker(r registration.UserRow) string {
	switch {
	case r.IsAdmin():
		return adminStyle.Render("★")
	case r.Online:
		return onlineStyle.Render("●")
	default:
		return dimStyle.Render("○")
	}
}

// accessCell shows one letter per unlocked game, in game order.
func accessCell(a beastgames.GameAccess) string {
	var b strings.Builder
	for _, g := range beastgames.Games {
		if a.Allows(g) {
			b.WriteString(strings.ToUpper(string(g)[:1]))
		} else {
			b.WriteString("-")
		}
	}
	return b.String()
}

func gameCell(g *beastgames.Game) string {
	if g == nil {
		return dimStyle.Render("none")
	}
	return lipgloss.NewStyle().Foreground(gameColors[string(*g)]).Render(string(*g))
}

// LastActive renders an ISO timestamp relative to now, or "never".
func LastActive(ts string, now time.Time) string {
	t, ok := beastgames.ParseTime(ts)
	if !ok {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// StatsLine summarises an overview in one line.
func StatsLine(o registration.Overview) string {
	d := o.Stats.GameDistribution
	return fmt.Sprintf("%s users · %s active · strength %d · mind %d · chance %d · %d with access · %d waiting",
		humanize.Comma(int64(o.Stats.TotalUsers)),
		humanize.Comma(int64(o.Stats.ActiveUsers)),
		d.Strength, d.Mind, d.Chance,
		o.WithAccess, o.WithoutAccess,
	)
}
