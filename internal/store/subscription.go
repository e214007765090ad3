package store

import (
	"context"
	"sync"

	"github.com/playperu/beastgames/internal/beastgames"
)

// hub fans out change signals to every open subscription in this process.
type hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan struct{}]struct{})}
}

func (h *hub) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// notify signals every subscriber. Signals coalesce: a subscriber that has
// not consumed the previous one is already due for a refresh.
func (h *hub) notify() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscription delivers the full set of documents matching a query, first
// on subscribe and again after every change. Only the latest snapshot is
// kept for a slow reader.
type Subscription struct {
	C <-chan []beastgames.Profile

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Cancel stops the subscription and closes C. It is safe to call more
// than once.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Err returns the query error that terminated the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type queryFunc func(ctx context.Context, q Query) ([]beastgames.Profile, error)

func (h *hub) watch(ctx context.Context, q Query, query queryFunc) (*Subscription, error) {
	// Register before the first read so no change can slip in between.
	changes := h.subscribe()
	initial, err := query(ctx, q)
	if err != nil {
		h.unsubscribe(changes)
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []beastgames.Profile, 1)
	out <- initial
	sub := &Subscription{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(out)
		defer h.unsubscribe(changes)

		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
			}

			snapshot, err := query(ctx, q)
			if err != nil {
				if ctx.Err() == nil {
					sub.mu.Lock()
					sub.err = err
					sub.mu.Unlock()
				}
				return
			}

			// Replace an unread snapshot with the newer one.
			select {
			case <-out:
			default:
			}
			out <- snapshot
		}
	}()

	return sub, nil
}
