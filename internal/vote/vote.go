package vote

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction is a vote intent or state. None means no vote: as an intent
// it clears any existing vote, as a state it reports the absence of a row.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	None Direction = "none"
)

// ParseDirection maps the wire value to a Direction. The empty string
// and "none" both mean clear, matching the original null intent.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "", "none":
		return None, nil
	}
	return None, fmt.Errorf("vote: invalid direction %q", s)
}

// Vote is one user's vote on one post. The composite unique index is the
// storage-level guarantee behind at-most-one-vote-per-user-per-post; the
// upsert path relies on it, application logic alone is not enough.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_post"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_post"`
	Direction Direction `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// resolve computes the next state from the persisted state and the
// requested intent:
//
//	none --up--> up      up --up--> none      down --down--> none
//	none --down--> down  up --down--> down    down --up--> up
//	any --none--> none
func resolve(current, requested Direction) Direction {
	if requested == None {
		return None
	}
	if requested == current {
		return None
	}
	return requested
}
