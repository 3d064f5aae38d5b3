package webhook

import (
	"sync"
	"time"
)

// commentDeduper remembers recently handled comment IDs so a redelivered or
// edited-comment webhook does not start a second run for the same comment.
type commentDeduper struct {
	mu   sync.Mutex
	seen map[int64]time.Time // comment ID -> entry expiry
	ttl  time.Duration
}

func newCommentDeduper(ttl time.Duration) *commentDeduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &commentDeduper{
		seen: make(map[int64]time.Time),
		ttl:  ttl,
	}
}

// markIfNew records the comment ID and reports whether it was unseen inside
// the TTL window. Expired entries are swept inline on each call.
func (d *commentDeduper) markIfNew(id int64) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for seenID, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, seenID)
		}
	}

	if expiry, ok := d.seen[id]; ok && now.Before(expiry) {
		return false
	}

	d.seen[id] = now.Add(d.ttl)
	return true
}
