// Package store persists user profiles as JSON documents in the "users"
// collection and pushes full result sets to live subscribers whenever a
// document changes.
package store

import (
	"context"
	"errors"

	"github.com/playperu/beastgames/internal/beastgames"
)

var ErrNotFound = errors.New("profile not found")

// Store is the profile document store.
type Store interface {
	Get(ctx context.Context, id string) (beastgames.Profile, error)
	// Set writes the whole document, replacing any existing one.
	Set(ctx context.Context, p beastgames.Profile) error
	// Update applies patch to an existing document.
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
	// Batch applies every update or none of them.
	Batch(ctx context.Context, updates []BatchUpdate) error
	Query(ctx context.Context, q Query) ([]beastgames.Profile, error)
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// FieldUpdate sets the value at a dotted document path. A nil Value removes
// the field.
type FieldUpdate struct {
	Path  string
	Value any
}

// Patch is an ordered list of field updates applied as one write.
type Patch []FieldUpdate

func Set(path string, value any) FieldUpdate {
	return FieldUpdate{Path: path, Value: value}
}

func Remove(path string) FieldUpdate {
	return FieldUpdate{Path: path}
}

type BatchUpdate struct {
	ID    string
	Patch Patch
}

// Query selects documents from the collection. The zero value matches all.
type Query struct {
	ID string
}

func All() Query { return Query{} }

func ByID(id string) Query { return Query{ID: id} }

func (q Query) matches(p beastgames.Profile) bool {
	return q.ID == "" || q.ID == p.ID
}
