// Package uuid wraps github.com/google/uuid and issues time-ordered (version 7)
// identifiers, so session ids sort by creation time.
package uuid

import (
	"time"

	"github.com/google/uuid"
)

type UUID = uuid.UUID

var Nil = uuid.Nil

// New returns a new UUIDv7. It panics if the random source fails.
func New() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id
}

// NewString is New().String() without the panic; callers that only need a
// trace id fall back to a timestamp.
func NewString() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "t-" + time.Now().UTC().Format("20060102T150405.000000000")
	}
	return id.String()
}

func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

func MustParse(s string) UUID {
	return uuid.MustParse(s)
}

// Time reports the creation time encoded in a UUIDv7.
func Time(id UUID) time.Time {
	sec, nsec := id.Time().UnixTime()
	return time.Unix(sec, nsec)
}

func IsV7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}
