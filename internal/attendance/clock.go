package attendance

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns UTC wall time.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// IDSource mints unique, unguessable identifiers.
type IDSource interface {
	NewID() (string, error)
}

// IDFunc adapts a plain function to IDSource.
type IDFunc func() (string, error)

func (f IDFunc) NewID() (string, error) { return f() }

// UUIDv7 ids carry a millisecond timestamp prefix followed by random bits.
var UUIDv7 IDSource = IDFunc(func() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
})
