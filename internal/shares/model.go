package shares

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxIdentifierLength = 190
	shareIDSuffixLength = 8
)

var (
	// ErrInvalidSessionID indicates that a session identifier is empty or exceeds storage bounds.
	ErrInvalidSessionID = errors.New("shares: invalid session id")
	// ErrInvalidShareID indicates that a share identifier is empty or exceeds storage bounds.
	ErrInvalidShareID = errors.New("shares: invalid share id")
	// ErrShareExists indicates that a share with the derived identifier is already active.
	ErrShareExists = errors.New("shares: share already exists")
	// ErrShareNotFound indicates that no share exists for the provided identifier.
	ErrShareNotFound = errors.New("shares: share not found")
	// ErrInvalidSecret indicates that the provided secret does not match the share secret.
	ErrInvalidSecret = errors.New("shares: invalid share secret")
	// ErrMalformedPayload indicates that a payload could not be serialized for storage.
	ErrMalformedPayload = errors.New("shares: malformed payload")
)

// SessionID represents a validated session identifier supplied by a publishing client.
type SessionID string

// NewSessionID validates raw input and returns a SessionID.
func NewSessionID(rawInput string) (SessionID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSessionID, maxIdentifierLength)
	}
	return SessionID(trimmed), nil
}

// String returns the underlying string identifier.
func (id SessionID) String() string {
	return string(id)
}

// ShareID derives the share identifier for the session. Derivation is a fixed
// trailing suffix so repeated create calls for one session target one share.
func (id SessionID) ShareID() ShareID {
	value := string(id)
	if len(value) > shareIDSuffixLength {
		value = value[len(value)-shareIDSuffixLength:]
	}
	return ShareID(value)
}

// ShareID represents a validated share identifier.
type ShareID string

// NewShareID validates raw input and returns a ShareID.
func NewShareID(rawInput string) (ShareID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidShareID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidShareID, maxIdentifierLength)
	}
	return ShareID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ShareID) String() string {
	return string(id)
}

// Share models the persisted share handle with its bearer secret.
type Share struct {
	ID               string `gorm:"column:id;primaryKey;size:190;not null"`
	Secret           string `gorm:"column:secret;size:190;not null"`
	SessionID        string `gorm:"column:session_id;size:190;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Share) TableName() string {
	return "shares"
}

// ShareEvent stores one immutable sync batch. EventID is assigned by the
// storage layer and is strictly increasing, which gives events of a share a
// total order without coordination between writers.
type ShareEvent struct {
	EventID          int64  `gorm:"column:event_id;primaryKey;autoIncrement"`
	ShareID          string `gorm:"column:share_id;size:190;not null;index:idx_share_events_share,priority:1"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ShareEvent) TableName() string {
	return "share_events"
}

// ShareSnapshot stores the compacted merged state per share together with the
// event id up to which the state is valid.
type ShareSnapshot struct {
	ShareID          string `gorm:"column:share_id;primaryKey;size:190;not null"`
	StateJSON        string `gorm:"column:state_json;type:text;not null"`
	LastEventID      int64  `gorm:"column:last_event_id;not null;default:0"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ShareSnapshot) TableName() string {
	return "share_snapshots"
}

// ShareRecord is the service-level view of a share returned to callers.
type ShareRecord struct {
	ID        ShareID
	Secret    string
	SessionID SessionID
}
