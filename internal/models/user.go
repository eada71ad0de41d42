package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// User represents the local identity used to attribute groups and expenses.
//
// Identity is client-generated: the ID is derived from the display name plus
// a timestamp/random suffix and is assumed globally unique without any
// server-side check. Two users picking the same name at the same instant can
// collide; the system accepts that trade-off.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// CreatedAt is when this identity was first created on this client.
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser creates a user with a client-generated ID derived from the name.
func NewUser(name string) *User {
	return &User{
		ID:        GenerateUserID(name),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// GenerateUserID builds a user ID from a cleaned name prefix (letters and
// digits only, max 8 chars), the last four digits of the current
// Unix-millisecond clock, and two random digits.
func GenerateUserID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 8 {
			break
		}
	}
	clean := b.String()
	if clean == "" {
		clean = "user"
	}

	return fmt.Sprintf("%s%04d%02d", clean, time.Now().UnixMilli()%10000, rand.Intn(100))
}
