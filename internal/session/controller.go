package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// Controller orchestrates the per-user bisection flow: it is the only
// component that touches both the registry and the frame provider.
//
// Each user's events (start, answer, cancel) are handled one at a time,
// in arrival order, by a lightweight worker goroutine created lazily for
// that user and retired once the user has no session and no queued
// events. Different users proceed fully in parallel.
type Controller struct {
	provider  FrameProvider
	sink      PresentationSink
	registry  *Registry
	timeout   time.Duration
	queueSize int

	mu      sync.Mutex
	workers map[int64]*worker
}

// worker serializes one user's event stream.
type worker struct {
	userID int64
	events chan event
}

// NewController wires the session engine to its collaborators. timeout
// bounds each provider metadata fetch; queueSize bounds a user's backlog
// of unprocessed events (overflow is dropped, which only happens under
// button-mashing).
func NewController(provider FrameProvider, sink PresentationSink, timeout time.Duration, queueSize int) *Controller {
	return &Controller{
		provider:  provider,
		sink:      sink,
		registry:  NewRegistry(),
		timeout:   timeout,
		queueSize: queueSize,
		workers:   make(map[int64]*worker),
	}
}

// Registry exposes the session registry for observers (status endpoint,
// tests). Callers must not mutate sessions obtained through it.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// OnStart begins a new search for the user over the named video,
// replacing any search already in progress.
func (c *Controller) OnStart(userID int64, video string) {
	c.dispatch(userID, event{Type: EventStart, Video: video})
}

// OnAnswer feeds back the user's verdict for a previously asked frame.
func (c *Controller) OnAnswer(userID int64, frame int, launched bool) {
	c.dispatch(userID, event{Type: EventAnswer, Frame: frame, Launched: launched})
}

// OnCancel discards the user's search, if any. Always succeeds.
func (c *Controller) OnCancel(userID int64) {
	c.dispatch(userID, event{Type: EventCancel})
}

// dispatch enqueues ev on the user's worker, creating the worker if
// needed. The enqueue is non-blocking: a full queue drops the event,
// which can only happen when the user fires events faster than the
// provider responds.
func (c *Controller) dispatch(userID int64, ev event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workers[userID]
	if !ok {
		w = &worker{
			userID: userID,
			events: make(chan event, c.queueSize),
		}
		c.workers[userID] = w
		go c.run(w)
	}

	select {
	case w.events <- ev:
	default:
		log.Printf("session: user %d event queue full, dropping event type %d", userID, ev.Type)
	}
}

// run is the worker goroutine: handle events in order until the user has
// neither a session nor a backlog.
func (c *Controller) run(w *worker) {
	for ev := range w.events {
		c.handle(w.userID, ev)
		if c.retire(w) {
			return
		}
	}
}

// retire removes the worker if it is idle. Checked under the same lock
// dispatch uses, so an event enqueued concurrently either lands before
// the length check (worker stays) or finds the worker gone and gets a
// fresh one.
func (c *Controller) retire(w *worker) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(w.events) > 0 {
		return false
	}
	if _, ok := c.registry.Get(w.userID); ok {
		return false
	}
	delete(c.workers, w.userID)
	return true
}

func (c *Controller) handle(userID int64, ev event) {
	switch ev.Type {
	case EventStart:
		c.handleStart(userID, ev.Video)
	case EventAnswer:
		c.handleAnswer(userID, ev.Frame, ev.Launched)
	case EventCancel:
		c.handleCancel(userID)
	}
}

func (c *Controller) handleStart(userID int64, video string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	frames, err := c.provider.FrameCount(ctx, video)
	if err != nil {
		log.Printf("session: user %d: frame count for %q: %v", userID, video, err)
		c.sink.AnnounceProviderError(userID)
		return
	}

	sess := newSession(video, frames)
	c.registry.Put(userID, sess)
	log.Printf("session: user %d: new search over %q (%d frames)", userID, video, frames)
	c.askNext(userID, sess)
}

func (c *Controller) handleAnswer(userID int64, frame int, launched bool) {
	sess, ok := c.registry.Get(userID)
	if !ok {
		c.sink.AnnounceNoActiveSearch(userID)
		return
	}

	if err := sess.Search.RecordAnswer(frame, launched); err != nil {
		// Stale or duplicate delivery; the original question is still
		// the outstanding one. Stay silent so a double-tap produces no
		// extra messages.
		return
	}

	if sess.Search.Finished() {
		c.finalize(userID, sess)
		return
	}
	c.askNext(userID, sess)
}

func (c *Controller) handleCancel(userID int64) {
	c.registry.Remove(userID)
	c.sink.AnnounceCancelled(userID)
}

// askNext asks the user about the next frame, or finalizes when the
// search has converged (including the degenerate single-frame video,
// which converges before any question is asked).
func (c *Controller) askNext(userID int64, sess *Session) {
	frame, ok := sess.Search.NextFrame()
	if !ok {
		c.finalize(userID, sess)
		return
	}
	sess.QuestionsAsked++
	c.sink.AskQuestion(userID, c.provider.FrameURL(sess.Video, frame), frame)
}

// finalize announces the converged result and removes the session. The
// registry membership check guards against a finalize racing a cancel:
// once the user cancelled (or started a different search), this search
// may no longer speak.
func (c *Controller) finalize(userID int64, sess *Session) {
	if !c.registry.Contains(userID, sess.ID) {
		log.Printf("session: user %d: dropping stale finalize for search %s", userID, sess.ID)
		return
	}
	result := sess.Search.Result()
	c.registry.Remove(userID)
	log.Printf("session: user %d: search over %q converged on frame %d after %d questions",
		userID, sess.Video, result, sess.QuestionsAsked)
	c.sink.AnnounceResult(userID, c.provider.FrameURL(sess.Video, result), result)
}
