// Package beastgames defines the core domain types of the registration
// service: user profiles, the three games, access flags and the rules that
// decide whether a user may lock in a selection.
// It has no external dependencies beyond golang.org/x/text.
package beastgames

import (
	"errors"
	"fmt"
	"time"
)

type Game string

const (
	GameStrength Game = "strength"
	GameMind     Game = "mind"
	GameChance   Game = "chance"
)

// Games lists every game in display order.
var Games = []Game{GameStrength, GameMind, GameChance}

func (g Game) Valid() bool {
	switch g {
	case GameStrength, GameMind, GameChance:
		return true
	}
	return false
}

func ParseGame(s string) (Game, error) {
	g := Game(s)
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGame, s)
	}
	return g, nil
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// GameAccess holds the per-game permission gates set by administrators.
type GameAccess struct {
	Strength bool `json:"strength"`
	Mind     bool `json:"mind"`
	Chance   bool `json:"chance"`
}

// UniformAccess returns access with every flag set to allowed.
func UniformAccess(allowed bool) GameAccess {
	return GameAccess{Strength: allowed, Mind: allowed, Chance: allowed}
}

func (a GameAccess) Allows(g Game) bool {
	switch g {
	case GameStrength:
		return a.Strength
	case GameMind:
		return a.Mind
	case GameChance:
		return a.Chance
	}
	return false
}

// Any reports whether at least one game is allowed.
func (a GameAccess) Any() bool {
	return a.Strength || a.Mind || a.Chance
}

func (a GameAccess) With(g Game, allowed bool) GameAccess {
	switch g {
	case GameStrength:
		a.Strength = allowed
	case GameMind:
		a.Mind = allowed
	case GameChance:
		a.Chance = allowed
	}
	return a
}

// Profile is the persisted per-user document, keyed by identity user id.
type Profile struct {
	ID                 string     `json:"uid"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	GitamEmail         string     `json:"gitamEmail"`
	MobileNumber       string     `json:"mobileNumber"`
	Branch             string     `json:"branch"`
	Year               string     `json:"year"`
	RegistrationNumber string     `json:"registrationNumber"`
	Role               Role       `json:"role"`
	GameAccess         GameAccess `json:"gameAccess"`
	CurrentGame        *Game      `json:"currentGame,omitempty"`
	GameSelectedAt     string     `json:"gameSelectedAt,omitempty"`
	LastActive         string     `json:"lastActive,omitempty"`
	CreatedAt          string     `json:"createdAt"`
	UpdatedAt          string     `json:"updatedAt"`
}

func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// SelectionState is the position of a profile in the selection lifecycle.
type SelectionState string

const (
	StateNoAccess      SelectionState = "no_access"
	StateAccessGranted SelectionState = "access_granted"
	StateLocked        SelectionState = "locked"
)

// State derives the selection state. A profile with a current game is
// locked even when its access has since been revoked.
func (p Profile) State() SelectionState {
	if p.CurrentGame != nil {
		return StateLocked
	}
	if p.GameAccess.Any() {
		return StateAccessGranted
	}
	return StateNoAccess
}

// CanSelect reports why a selection of g would be rejected, or nil.
func (p Profile) CanSelect(g Game) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGame, g)
	}
	if p.CurrentGame != nil {
		return ErrAlreadySelected
	}
	if !p.GameAccess.Allows(g) {
		return ErrNoAccess
	}
	return nil
}

// Document field paths, used for partial updates.
const (
	FieldRole           = "role"
	FieldGameAccess     = "gameAccess"
	FieldCurrentGame    = "currentGame"
	FieldGameSelectedAt = "gameSelectedAt"
	FieldLastActive     = "lastActive"
	FieldUpdatedAt      = "updatedAt"
)

// AccessField returns the path of the access flag for g.
func AccessField(g Game) string {
	return FieldGameAccess + "." + string(g)
}

var (
	ErrInvalidGame      = errors.New("invalid game")
	ErrNoAccess         = errors.New("no access to this game")
	ErrAlreadySelected  = errors.New("a game has already been selected")
	ErrProfileRequired  = errors.New("profile not completed")
	ErrProtectedProfile = errors.New("admin profiles cannot be modified")
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t the way profile timestamps are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a stored timestamp. Any RFC 3339 value is accepted.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func GamePtr(g Game) *Game {
	return &g
}
