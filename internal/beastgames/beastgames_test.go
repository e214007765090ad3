package beastgames

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseGame(t *testing.T) {
	tests := []struct {
		in      string
		want    Game
		wantErr bool
	}{
		{"strength", GameStrength, false},
		{"mind", GameMind, false},
		{"chance", GameChance, false},
		{"Strength", "", true},
		{"", "", true},
		{"luck", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGame(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidGame) {
				t.Errorf("ParseGame(%q) err = %v, want ErrInvalidGame", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseGame(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestProfileState(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    SelectionState
	}{
		{"no flags", Profile{}, StateNoAccess},
		{"one flag", Profile{GameAccess: GameAccess{Mind: true}}, StateAccessGranted},
		{"selected", Profile{GameAccess: GameAccess{Mind: true}, CurrentGame: GamePtr(GameMind)}, StateLocked},
		{"selected then revoked", Profile{CurrentGame: GamePtr(GameMind)}, StateLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanSelectSequence(t *testing.T) {
	p := Profile{GameAccess: GameAccess{Strength: true}}

	if err := p.CanSelect(GameMind); !errors.Is(err, ErrNoAccess) {
		t.Fatalf("select mind: err = %v, want ErrNoAccess", err)
	}
	if err := p.CanSelect(GameStrength); err != nil {
		t.Fatalf("select strength: %v", err)
	}
	p.CurrentGame = GamePtr(GameStrength)
	if err := p.CanSelect(GameChance); !errors.Is(err, ErrAlreadySelected) {
		t.Fatalf("select chance after lock: err = %v, want ErrAlreadySelected", err)
	}
	if err := p.CanSelect(GameStrength); !errors.Is(err, ErrAlreadySelected) {
		t.Fatalf("reselect strength: err = %v, want ErrAlreadySelected", err)
	}
}

func TestSubmissionValidate(t *testing.T) {
	sub := Submission{Name: "  Asha ", Email: "a@example.com", Branch: "CSE"}.Normalize()
	if sub.Name != "Asha" {
		t.Errorf("Name = %q, want trimmed", sub.Name)
	}
	err := sub.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	want := "gitamEmail, mobileNumber, year, registrationNumber"
	if got := strings.Join(verr.Missing, ", "); got != want {
		t.Errorf("missing = %q, want %q", got, want)
	}

	if err := fullSubmission().Validate(); err != nil {
		t.Errorf("full submission: %v", err)
	}
}

func TestSubmissionNormalizeNFC(t *testing.T) {
	// "e" followed by a combining acute accent.
	sub := Submission{Name: "Rene\u0301"}.Normalize()
	if sub.Name != "Ren\u00e9" {
		t.Errorf("Name = %q, want composed form", sub.Name)
	}
}

func fullSubmission() Submission {
	return Submission{
		Name:               "Asha",
		Email:              "asha@example.com",
		GitamEmail:         "asha@gitam.in",
		MobileNumber:       "9999999999",
		Branch:             "CSE",
		Year:               "3",
		RegistrationNumber: "REG123",
	}
}

func TestMergeProfileWithoutExisting(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := MergeProfile("u1", nil, fullSubmission(), RoleUser, now)

	if p.GameAccess.Any() {
		t.Errorf("GameAccess = %+v, want all false", p.GameAccess)
	}
	if p.CurrentGame != nil {
		t.Errorf("CurrentGame = %v, want nil", *p.CurrentGame)
	}
	if p.CreatedAt != "2025-03-01T10:00:00.000Z" || p.UpdatedAt != p.CreatedAt {
		t.Errorf("timestamps = %q / %q", p.CreatedAt, p.UpdatedAt)
	}

	admin := MergeProfile("u2", nil, fullSubmission(), RoleAdmin, now)
	if admin.GameAccess != UniformAccess(true) {
		t.Errorf("admin GameAccess = %+v, want all true", admin.GameAccess)
	}
}

func TestMergeProfileKeepsAdminGrantedFields(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	existing := &Profile{
		ID:             "u1",
		Name:           "Old Name",
		GameAccess:     GameAccess{Chance: true},
		CurrentGame:    GamePtr(GameChance),
		GameSelectedAt: FormatTime(created),
		CreatedAt:      FormatTime(created),
	}

	p := MergeProfile("u1", existing, fullSubmission(), RoleUser, now)

	if p.Name != "Asha" {
		t.Errorf("Name = %q, want submitted value", p.Name)
	}
	if p.GameAccess != (GameAccess{Chance: true}) {
		t.Errorf("GameAccess = %+v, want existing", p.GameAccess)
	}
	if p.CurrentGame == nil || *p.CurrentGame != GameChance {
		t.Errorf("CurrentGame not preserved")
	}
	if p.CreatedAt != FormatTime(created) {
		t.Errorf("CreatedAt = %q, want existing", p.CreatedAt)
	}
	if p.UpdatedAt != FormatTime(now) {
		t.Errorf("UpdatedAt = %q, want now", p.UpdatedAt)
	}
}

func TestMergeProfileAdminGetsFullAccess(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := &Profile{ID: "u1", Role: RoleUser, GameAccess: GameAccess{Mind: true}}

	p := MergeProfile("u1", existing, Submission{Name: "A"}, RoleAdmin, now)
	if p.GameAccess != UniformAccess(true) {
		t.Errorf("GameAccess = %+v, want all true for admin", p.GameAccess)
	}
}

func TestNewAdminProfile(t *testing.T) {
	now := time.Now()
	p := NewAdminProfile("a1", "tgantasa@gitam.in", "", now)
	if p.Role != RoleAdmin || p.GameAccess != UniformAccess(true) {
		t.Errorf("got role %q access %+v", p.Role, p.GameAccess)
	}
	if p.Name != "Admin User" || p.Branch != "Admin" || p.GitamEmail != "tgantasa@gitam.in" {
		t.Errorf("placeholder fields = %+v", p)
	}
	if p.CurrentGame != nil {
		t.Error("CurrentGame should be absent")
	}
}
