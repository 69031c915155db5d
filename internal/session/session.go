package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/rocketfinder/backend/internal/bisect"
)

// Session is one user's in-progress launch search. It is owned by that
// user's worker goroutine: only the registry map itself is shared state,
// never the Session fields.
type Session struct {
	// ID distinguishes this search from any earlier or later search by
	// the same user. Finalization re-checks it against the registry so a
	// stale in-flight finalize can never speak for a cancelled or
	// replaced search.
	ID uuid.UUID

	Video          string
	TotalFrames    int
	Search         *bisect.Search
	StartedAt      time.Time
	QuestionsAsked int
}

func newSession(video string, totalFrames int) *Session {
	return &Session{
		ID:          uuid.New(),
		Video:       video,
		TotalFrames: totalFrames,
		Search:      bisect.New(totalFrames),
		StartedAt:   time.Now(),
	}
}
