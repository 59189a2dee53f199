// Package chat holds the in-memory core of the wanderchat backend: user
// sessions, the message ledger, and the presence counter. It has no transport
// dependencies so every store can be constructed in isolation for tests.
package chat

import (
	"fmt"
	"math/rand/v2"
)

// User is the identity created at registration. It is immutable once issued;
// the session store owns the only authoritative copy.
type User struct {
	ID   string `json:"userId"`
	Name string `json:"name"`
}

// newUserID returns a random 6-digit display identifier. It is not a
// credential, so collision resistance beyond the digit space is not needed.
func newUserID() string {
	return fmt.Sprintf("%d", 100000+rand.IntN(900000))
}
