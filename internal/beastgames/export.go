package beastgames

import (
	"encoding/csv"
	"io"
	"time"
)

var exportHeader = []string{
	"Name", "Email", "Mobile", "Branch", "Year",
	"Registration Number", "Current Game", "Last Active",
}

// ExportFilename is the download name for an export produced at now.
func ExportFilename(now time.Time) string {
	return "beast_games_users_" + now.UTC().Format("2006-01-02") + ".csv"
}

// WriteCSV writes profiles as CSV. Last-active times are rendered in loc.
func WriteCSV(w io.Writer, profiles []Profile, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, p := range profiles {
		game := "None"
		if p.CurrentGame != nil {
			game = string(*p.CurrentGame)
		}
		lastActive := "Never"
		if t, ok := ParseTime(p.LastActive); ok {
			lastActive = t.In(loc).Format("2006-01-02 15:04:05")
		}
		row := []string{
			p.Name, p.GitamEmail, p.MobileNumber, p.Branch, p.Year,
			p.RegistrationNumber, game, lastActive,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
