// Package tui is the live terminal dashboard behind "beastctl watch".
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/registration"
	"github.com/playperu/beastgames/internal/store"
)

// refreshInterval re-derives online markers and relative times between
// store changes.
const refreshInterval = 15 * time.Second

type snapshotMsg []beastgames.Profile

type feedClosedMsg struct{}

type tickMsg time.Time

// Dashboard shows the admin overview and redraws on every snapshot.
type Dashboard struct {
	snapshots <-chan []beastgames.Profile
	now       func() time.Time

	profiles []beastgames.Profile
	overview registration.Overview
	loaded   bool
	closed   bool
	width    int
}

func NewDashboard(snapshots <-chan []beastgames.Profile, now func() time.Time) Dashboard {
	return Dashboard{snapshots: snapshots, now: now}
}

func waitForSnapshot(ch <-chan []beastgames.Profile) tea.Cmd {
	return func() tea.Msg {
		profiles, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return snapshotMsg(profiles)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(d.snapshots), tickCmd())
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return d, tea.Quit
		}
	case tea.WindowSizeMsg:
		d.width = msg.Width
	case snapshotMsg:
		d.profiles = msg
		d.overview = registration.BuildOverview(d.profiles, d.now())
		d.loaded = true
		return d, waitForSnapshot(d.snapshots)
	case feedClosedMsg:
		d.closed = true
	case tickMsg:
		if d.loaded {
			d.overview = registration.BuildOverview(d.profiles, d.now())
		}
		return d, tickCmd()
	}
	return d, nil
}

func (d Dashboard) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BEAST GAMES · admin console"))
	b.WriteString("\n\n")

	if !d.loaded {
		b.WriteString(dimStyle.Render("loading users..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(StatsLine(d.overview))
	b.WriteString("\n")
	if len(d.overview.Users) == 0 {
		b.WriteString(dimStyle.Render("no users registered yet"))
		b.WriteString("\n")
	} else {
		b.WriteString(UsersTable(d.overview.Users, d.now()))
		b.WriteString("\n")
	}
	if d.closed {
		b.WriteString(errorStyle.Render("live feed stopped"))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("q quit"))
	return b.String()
}

// Watcher is the part of the console the dashboard needs.
type Watcher interface {
	Watch(ctx context.Context) (*store.Subscription, error)
	Now() time.Time
}

// Run opens a subscription on all profiles and runs the dashboard until
// the user quits or ctx ends.
func Run(ctx context.Context, w Watcher, opts ...tea.ProgramOption) error {
	sub, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	defer sub.Cancel()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewDashboard(sub.C, w.Now), opts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return sub.Err()
}
