package storeengine

import (
	"time"

	"github.com/google/uuid"
)

// UUID is a thin wrapper over github.com/google/uuid.UUID so the rest of the engine stays
// decoupled from the external package's API surface.
type UUID uuid.UUID

// NilUUID is the zero-value UUID, used as a sentinel for "no parent"/"no checkpoint addr".
var NilUUID UUID

// NewUUID returns a new randomly generated UUID. Generation failures are exceedingly rare
// (entropy source exhaustion); retry a handful of times with a short backoff before giving up.
func NewUUID() UUID {
	var err error
	for i := 0; i < 10; i++ {
		var id uuid.UUID
		id, err = uuid.NewRandom()
		if err == nil {
			return UUID(id)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

// ParseUUID parses a string into a UUID, returning an error if it is not well-formed.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	return UUID(u), err
}

// IsNil reports whether this is the zero-value UUID.
func (u UUID) IsNil() bool {
	return u == NilUUID
}

func (u UUID) String() string {
	return uuid.UUID(u).String()
}
