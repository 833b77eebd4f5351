// Package enrich governs which automated source may write which attribute of
// an entity, and keeps an audit trail of who set each value. User edits lock
// attributes and take absolute precedence over any automated source.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies who wrote a value. Provider names are used verbatim as
// sources, alongside the fixed ones below.
type Source string

const (
	SourceUser Source = "user"
	SourceRule Source = "rule"
	SourceAI   Source = "ai"
)

// Lock records who closed an attribute to enrichment and when. The holder
// matters: clearing a source's cache releases only that source's locks, so a
// user lock on a previously machine-enriched attribute survives the clear.
type Lock struct {
	Source Source    `json:"source"`
	At     time.Time `json:"at"`
}

// Enrichable is the capability an entity needs to participate in enrichment:
// named string attributes with per-attribute locks.
type Enrichable interface {
	EnrichableType() string
	EnrichableID() uuid.UUID

	// AttrValue and SetAttrValue fail loudly on unknown attribute names so
	// a typo is distinguishable from a lock rejection.
	AttrValue(name string) (string, error)
	SetAttrValue(name, value string) error

	Locked(name string) bool
	LockAttr(name string, l Lock)
	UnlockAttr(name string)
	LockedAttrs() map[string]Lock
}

// Record is one audit row per (entity, attribute, source). Repeat enrichment
// from the same source updates the row in place.
type Record struct {
	ID         uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Attribute  string
	Value      string
	Source     Source
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Change is one applied attribute write.
type Change struct {
	Attribute string
	Value     string
}

//go:generate mockgen -source=enrich.go -destination=repository_mock.go -package=enrich
type Repository interface {
	// Apply persists the entity's changed attributes, upserts one Record
	// per change keyed by (entity, attribute, source), all in a single
	// transaction.
	Apply(ctx context.Context, entity Enrichable, changes []Change, source Source, metadata map[string]any) error

	// SaveLocks persists the entity's current lock map.
	SaveLocks(ctx context.Context, entity Enrichable) error

	// ClearSource removes, in one transaction, every Record of the given
	// source for the entity type and releases the locks that source holds.
	// Locks held by anyone else, the user above all, stay in place.
	ClearSource(ctx context.Context, entityType string, source Source) error

	// ClearSourceFor is ClearSource scoped to a single entity.
	ClearSourceFor(ctx context.Context, entityType string, entityID uuid.UUID, source Source) error
}

// ignoredAttributes are identity and timestamp fields no source may enrich.
var ignoredAttributes = map[string]struct{}{
	"id":          {},
	"external_id": {},
	"created_at":  {},
	"updated_at":  {},
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Enrich writes attrs onto the entity on behalf of source, skipping locked,
// ignored, and unchanged attributes. It returns the names actually applied so
// callers can tell what changed from what a lock rejected. An unknown
// attribute name is an error, never a silent skip.
func (s *Service) Enrich(ctx context.Context, entity Enrichable, attrs map[string]string, source Source, metadata map[string]any) ([]string, error) {
	var changes []Change

	for name, value := range attrs {
		if _, ignored := ignoredAttributes[name]; ignored {
			continue
		}

		if entity.Locked(name) {
			continue
		}

		current, err := entity.AttrValue(name)
		if err != nil {
			return nil, fmt.Errorf("enriching %s: %w", entity.EnrichableType(), err)
		}

		if current == value {
			continue
		}

		changes = append(changes, Change{Attribute: name, Value: value})
	}

	if len(changes) == 0 {
		return nil, nil
	}

	for _, c := range changes {
		if err := entity.SetAttrValue(c.Attribute, c.Value); err != nil {
			return nil, fmt.Errorf("enriching %s: %w", entity.EnrichableType(), err)
		}
	}

	if err := s.repo.Apply(ctx, entity, changes, source, metadata); err != nil {
		return nil, fmt.Errorf("applying enrichment: %w", err)
	}

	applied := make([]string, len(changes))
	for i, c := range changes {
		applied[i] = c.Attribute
	}

	return applied, nil
}

// LockAttr marks one attribute as closed to enrichment on behalf of source.
// Idempotent per holder; a different holder takes over the lock, so the map
// always names the most recent locking source.
func (s *Service) LockAttr(ctx context.Context, entity Enrichable, name string, source Source) error {
	if l, ok := entity.LockedAttrs()[name]; ok && l.Source == source {
		return nil
	}

	entity.LockAttr(name, Lock{Source: source, At: s.now()})

	if err := s.repo.SaveLocks(ctx, entity); err != nil {
		return fmt.Errorf("locking %s: %w", name, err)
	}

	return nil
}

// UnlockAttr reopens one attribute to enrichment. Idempotent.
func (s *Service) UnlockAttr(ctx context.Context, entity Enrichable, name string) error {
	if !entity.Locked(name) {
		return nil
	}

	entity.UnlockAttr(name)

	if err := s.repo.SaveLocks(ctx, entity); err != nil {
		return fmt.Errorf("unlocking %s: %w", name, err)
	}

	return nil
}

// LockSavedAttributes locks every attribute in changed, the entity's most
// recent directly-saved change set. This is what gives user edits absolute
// precedence: a user-changed attribute stays un-enrichable until explicitly
// unlocked.
func (s *Service) LockSavedAttributes(ctx context.Context, entity Enrichable, changed []string) error {
	lock := Lock{Source: SourceUser, At: s.now()}
	locked := false

	for _, name := range changed {
		if _, ignored := ignoredAttributes[name]; ignored {
			continue
		}

		entity.LockAttr(name, lock)

		locked = true
	}

	if !locked {
		return nil
	}

	if err := s.repo.SaveLocks(ctx, entity); err != nil {
		return fmt.Errorf("locking saved attributes: %w", err)
	}

	return nil
}

// ClearSourceCache drops everything a source ever enriched on an entity type:
// the source's locks first, then its audit records, in one transaction.
func (s *Service) ClearSourceCache(ctx context.Context, entityType string, source Source) error {
	if err := s.repo.ClearSource(ctx, entityType, source); err != nil {
		return fmt.Errorf("clearing %s cache: %w", source, err)
	}

	return nil
}

// ClearEntitySourceCache is ClearSourceCache for a single entity, so one
// record's machine-written values can be reset without touching the rest of
// the class.
func (s *Service) ClearEntitySourceCache(ctx context.Context, entity Enrichable, source Source) error {
	if err := s.repo.ClearSourceFor(ctx, entity.EnrichableType(), entity.EnrichableID(), source); err != nil {
		return fmt.Errorf("clearing %s cache: %w", source, err)
	}

	for name, l := range entity.LockedAttrs() {
		if l.Source == source {
			entity.UnlockAttr(name)
		}
	}

	return nil
}
