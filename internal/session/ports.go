package session

import "context"

// FrameProvider supplies video metadata and frame image locations. The
// controller is the only caller; implementations include the FrameX HTTP
// client and an in-memory mock for offline runs.
//
// FrameCount is the only call that may block (it goes to the network) and
// must honor ctx. FrameURL is pure string construction and never fails;
// dereferencing the returned URL is the presentation layer's concern.
type FrameProvider interface {
	// FrameCount returns the total number of frames in the named video,
	// always >= 1 on success. Lookup, network, and malformed-response
	// failures all surface as an error; the controller treats every
	// provider error as transient.
	FrameCount(ctx context.Context, video string) (int, error)

	// FrameURL returns a fetchable locator for one frame of a video,
	// frame indexed in [0, FrameCount-1].
	FrameURL(video string, frame int) string
}

// PresentationSink is the outbound half of the user conversation. The
// controller calls it to ask questions and announce outcomes; it never
// reads answers back (those arrive through Controller.OnAnswer).
//
// Calls for a given user are made from that user's worker goroutine, one
// at a time. Calls for different users may be concurrent, so
// implementations must be safe for concurrent use across users.
// Implementations must not block for long: a slow or disconnected user
// should cause a drop, not stall the session engine.
type PresentationSink interface {
	// AskQuestion presents frame (via its image URL) and asks whether
	// the rocket has launched by that frame. The frame index must be
	// round-tripped back through Controller.OnAnswer unchanged.
	AskQuestion(userID int64, frameURL string, frame int)

	// AnnounceResult presents the final answer: the first frame showing
	// the launch.
	AnnounceResult(userID int64, frameURL string, frame int)

	// AnnounceNoActiveSearch tells the user they have no search in
	// progress. Informational, not an error.
	AnnounceNoActiveSearch(userID int64)

	// AnnounceCancelled confirms a cancel request.
	AnnounceCancelled(userID int64)

	// AnnounceProviderError tells the user the video service is
	// unavailable right now and they should retry.
	AnnounceProviderError(userID int64)
}
