package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/registration"
	"github.com/playperu/beastgames/internal/tui"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Output handles formatting output based on the configured format.
type Output struct {
	format string
	w      io.Writer
}

func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format.
func (o *Output) Print(data any) {
	if o.format == FormatJSON {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a confirmation line.
func (o *Output) PrintMessage(msg string) {
	if o.format == FormatJSON {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case usersView:
		o.printUsers(v)
	case statsView:
		o.printStats(v)
	case accessResult:
		o.printAccess(v)
	default:
		o.printJSON(data)
	}
}

// usersView is the listing printed by "users list".
type usersView struct {
	registration.Overview
	now time.Time
}

type statsView struct {
	beastgames.GameStats
	WithAccess    int `json:"withAccess"`
	WithoutAccess int `json:"withoutAccess"`
}

type accessResult struct {
	UserID  string          `json:"userId"`
	Game    beastgames.Game `json:"game"`
	Allowed bool            `json:"allowed"`
}

func (o *Output) printUsers(v usersView) {
	fmt.Fprintln(o.w, tui.StatsLine(v.Overview))
	if len(v.Users) == 0 {
		fmt.Fprintln(o.w, "No users found")
		return
	}
	fmt.Fprintln(o.w, tui.UsersTable(v.Users, v.now))
}

func (o *Output) printStats(v statsView) {
	d := v.GameDistribution
	fmt.Fprintf(o.w, "Total users:    %d\n", v.TotalUsers)
	fmt.Fprintf(o.w, "Active users:   %d\n", v.ActiveUsers)
	fmt.Fprintf(o.w, "With access:    %d\n", v.WithAccess)
	fmt.Fprintf(o.w, "Without access: %d\n", v.WithoutAccess)
	fmt.Fprintf(o.w, "Strength:       %d\n", d.Strength)
	fmt.Fprintf(o.w, "Mind:           %d\n", d.Mind)
	fmt.Fprintf(o.w, "Chance:         %d\n", d.Chance)
}

func (o *Output) printAccess(v accessResult) {
	verb := "revoked"
	if v.Allowed {
		verb = "granted"
	}
	fmt.Fprintf(o.w, "%s access %s for %s\n", v.Game, verb, v.UserID)
}
