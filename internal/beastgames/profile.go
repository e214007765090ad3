package beastgames

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Submission holds the identity fields collected at profile completion.
type Submission struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	GitamEmail         string `json:"gitamEmail"`
	MobileNumber       string `json:"mobileNumber"`
	Branch             string `json:"branch"`
	Year               string `json:"year"`
	RegistrationNumber string `json:"registrationNumber"`
}

// ValidationError lists the submission fields that were missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Normalize trims every field and converts it to Unicode NFC.
func (s Submission) Normalize() Submission {
	clean := func(v string) string {
		return norm.NFC.String(strings.TrimSpace(v))
	}
	return Submission{
		Name:               clean(s.Name),
		Email:              clean(s.Email),
		GitamEmail:         clean(s.GitamEmail),
		MobileNumber:       clean(s.MobileNumber),
		Branch:             clean(s.Branch),
		Year:               clean(s.Year),
		RegistrationNumber: clean(s.RegistrationNumber),
	}
}

// Validate reports every empty field. It expects a normalized submission.
func (s Submission) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", s.Name},
		{"email", s.Email},
		{"gitamEmail", s.GitamEmail},
		{"mobileNumber", s.MobileNumber},
		{"branch", s.Branch},
		{"year", s.Year},
		{"registrationNumber", s.RegistrationNumber},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// MergeProfile builds the document written at profile completion.
//
// Precedence, highest first:
//   - submitted identity fields always replace stored ones;
//   - fields an administrator may have set before completion (gameAccess,
//     currentGame, gameSelectedAt) and createdAt are kept from existing;
//   - otherwise defaults apply: no access, no game, createdAt = now;
//   - an admin role always gets access to every game, whatever was stored.
//
// role is decided by the caller; updatedAt and lastActive are always now.
func MergeProfile(id string, existing *Profile, sub Submission, role Role, now time.Time) Profile {
	ts := FormatTime(now)
	p := Profile{
		ID:                 id,
		Name:               sub.Name,
		Email:              sub.Email,
		GitamEmail:         sub.GitamEmail,
		MobileNumber:       sub.MobileNumber,
		Branch:             sub.Branch,
		Year:               sub.Year,
		RegistrationNumber: sub.RegistrationNumber,
		Role:               role,
		GameAccess:         UniformAccess(role == RoleAdmin),
		CreatedAt:          ts,
		UpdatedAt:          ts,
		LastActive:         ts,
	}
	if existing != nil {
		p.GameAccess = existing.GameAccess
		p.CurrentGame = existing.CurrentGame
		p.GameSelectedAt = existing.GameSelectedAt
		if existing.CreatedAt != "" {
			p.CreatedAt = existing.CreatedAt
		}
	}
	if role == RoleAdmin {
		p.GameAccess = UniformAccess(true)
	}
	return p
}

// NewAdminProfile is the placeholder profile provisioned for an allow-listed
// administrator who signs in before completing a profile.
func NewAdminProfile(id, email, displayName string, now time.Time) Profile {
	ts := FormatTime(now)
	name := displayName
	if name == "" {
		name = "Admin User"
	}
	return Profile{
		ID:         id,
		Name:       name,
		Email:      email,
		GitamEmail: email,
		Branch:     "Admin",
		Role:       RoleAdmin,
		GameAccess: UniformAccess(true),
		LastActive: ts,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// PromoteToAdmin returns p upgraded to the admin role with full access.
func PromoteToAdmin(p Profile, now time.Time) Profile {
	p.Role = RoleAdmin
	p.GameAccess = UniformAccess(true)
	p.UpdatedAt = FormatTime(now)
	return p
}
