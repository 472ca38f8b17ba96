// Package session holds the durable session model: an ordered, append-only
// log of entries plus a small amount of game state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidEntry = errors.New("invalid log entry")
)

// EntryKind classifies a log entry.
type EntryKind string

const (
	KindNarrative EntryKind = "narrative"
	KindRoll      EntryKind = "roll"
	KindSystem    EntryKind = "system"
	KindPlayer    EntryKind = "player"
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindNarrative, KindRoll, KindSystem, KindPlayer:
		return true
	default:
		return false
	}
}

const (
	DefaultLocation = "A quiet tavern in Ubersreik"

	OpeningNarrative = "The Drunken Mug is loud tonight. Rain hammers the shutters of the old " +
		"tavern in Ubersreik while boatmen, dockhands and a pair of grim Reiklanders argue " +
		"over cheap ale. The fire spits and smokes. Somewhere near the back, a hooded figure " +
		"has been watching the door since you walked in. What do you do?"
)

// LogEntry is one immutable line of session history. Seq is the 1-based
// position assigned by the store on append. Transient marks a notice that
// was broadcast but could not be persisted; stored entries never carry it.
type LogEntry struct {
	Seq       int       `json:"seq"`
	Kind      EntryKind `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Transient bool      `json:"transient,omitempty"`
}

// NewEntry stamps an entry with the current time. Seq is left to the store.
func NewEntry(kind EntryKind, content string) LogEntry {
	return LogEntry{Kind: kind, Content: content, Timestamp: time.Now().UTC()}
}

type GameState struct {
	CurrentLocation string `json:"currentLocation"`
}

type Session struct {
	ID          string     `json:"id"`
	CharacterID string     `json:"characterId"`
	OwnerID     string     `json:"ownerId,omitempty"`
	Log         []LogEntry `json:"log"`
	State       GameState  `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// New builds a fresh session opened with the tavern narrative as its first
// system entry.
func New(characterID, ownerID string) Session {
	now := time.Now().UTC()
	opening := NewEntry(KindSystem, OpeningNarrative)
	opening.Seq = 1
	opening.Timestamp = now
	return Session{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		OwnerID:     ownerID,
		Log:         []LogEntry{opening},
		State:       GameState{CurrentLocation: DefaultLocation},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Context joins log contents in order, one entry per line.
func (s Session) Context() string {
	parts := make([]string, 0, len(s.Log))
	for _, e := range s.Log {
		parts = append(parts, e.Content)
	}
	return strings.Join(parts, "\n")
}

func (s Session) clone() Session {
	c := s
	c.Log = append([]LogEntry(nil), s.Log...)
	return c
}

// Store persists sessions. AppendEntry assigns Seq and returns the stored
// entry; it fails with ErrNotFound for unknown sessions.
type Store interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	AppendEntry(ctx context.Context, id string, entry LogEntry) (LogEntry, error)
	UpdateState(ctx context.Context, id string, state GameState) error
	Close() error
}

func validateEntry(entry LogEntry) error {
	if !entry.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidEntry, entry.Kind)
	}
	return nil
}

func prepareEntry(entry LogEntry, seq int) LogEntry {
	entry.Seq = seq
	entry.Transient = false
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return entry
}

func prepareSession(s Session) Session {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if s.State.CurrentLocation == "" {
		s.State.CurrentLocation = DefaultLocation
	}
	log := make([]LogEntry, len(s.Log))
	for i, e := range s.Log {
		log[i] = prepareEntry(e, i+1)
	}
	s.Log = log
	return s
}
