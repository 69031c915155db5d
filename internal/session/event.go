package session

// EventType classifies the per-user interaction events the controller
// processes.
type EventType int

const (
	EventStart  EventType = iota // begin a new search (replaces any current one)
	EventAnswer                  // yes/no verdict for a previously asked frame
	EventCancel                  // discard the current search
)

// event is one entry in a user's ordered worker queue. Video applies to
// start events; Frame and Launched to answer events.
type event struct {
	Type     EventType
	Video    string
	Frame    int
	Launched bool
}
