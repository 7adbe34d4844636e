// Package session keeps per-browser key/value state between requests.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CookieName carries the session id.
const CookieName = "csvinsight_session"

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 60 * time.Minute

var ErrInvalidID = errors.New("invalid session id")

// Store is the key/value state of one session.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}

// Manager owns sessions keyed by id. Load creates a session when the id is
// unknown or expired and rejects ids that are not uuids.
type Manager interface {
	Load(id string) (Store, error)
	Destroy(id string) error
	Sweep()
}

// NewID returns a fresh random session id.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id looks like one NewID would produce.
func ValidID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.Version() == 4
}
