package app

import (
	"sync"

	"lingo-quiz-service/internal/domain"
)

// ProgressFeed fans progress snapshots out to each user's live subscribers.
type ProgressFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.ProgressSnapshot]struct{}
}

func NewProgressFeed() *ProgressFeed {
	return &ProgressFeed{
		subscribers: make(map[string]map[chan domain.ProgressSnapshot]struct{}),
	}
}

// Subscribe returns a channel of snapshots for userID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ProgressFeed) Subscribe(userID string) (<-chan domain.ProgressSnapshot, func()) {
	ch := make(chan domain.ProgressSnapshot, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.ProgressSnapshot]struct{})
		f.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[userID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish delivers snapshot to every subscriber of userID without blocking.
func (f *ProgressFeed) Publish(userID string, snapshot domain.ProgressSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[userID] {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber: drop its oldest pending update to make room.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Subscribers reports how many live subscriptions userID has.
func (f *ProgressFeed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[userID])
}
