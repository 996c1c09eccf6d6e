package console

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// Directory is the in-memory list of user records shown in the authorized view.
// It is safe for concurrent use.
type Directory struct {
	mu    sync.Mutex
	seq   atomic.Uint64
	users []UserRecord

	// settled is the newest generation whose load finished or whose Clear ran.
	// settledCh is closed and replaced whenever it moves.
	settled   uint64
	settledCh chan struct{}

	// toggles confirmed since the oldest load that may still be in flight
	toggles []toggle
}

type toggle struct {
	seq        uint64
	id         UserID
	authorized bool
}

func NewDirectory() *Directory {
	return &Directory{settledCh: make(chan struct{})}
}

// Load fetches the directory and replaces the cache with the result.
// Each load takes a new sequence number; when a newer load or Clear happened
// while this one was in flight, the result is dropped and ErrStaleLoad returned.
// A dropped load first waits for the newer generation to settle, so the cache
// read afterwards holds the winner's records.
func (d *Directory) Load(ctx context.Context, api AdminAPI, token string) ([]UserRecord, error) {
	seq := d.seq.Inc()
	users, err := api.ListUsers(ctx, token)

	d.mu.Lock()
	if seq != d.seq.Load() {
		d.mu.Unlock()
		d.awaitNewer(ctx, seq)
		return nil, ErrStaleLoad
	}
	defer d.mu.Unlock()
	d.settle(seq)
	if err != nil {
		return nil, err
	}
	d.users = cloneUsers(users)
	d.applyToggles(seq)
	return cloneUsers(d.users), nil
}

func (d *Directory) awaitNewer(ctx context.Context, seq uint64) {
	for {
		d.mu.Lock()
		if d.settledCh == nil {
			d.settledCh = make(chan struct{})
		}
		settled, ch := d.settled, d.settledCh
		d.mu.Unlock()
		if settled > seq {
			return
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return
		}
	}
}

// settle must be called with mu held.
func (d *Directory) settle(seq uint64) {
	if seq <= d.settled {
		return
	}
	d.settled = seq
	if d.settledCh != nil {
		close(d.settledCh)
	}
	d.settledCh = make(chan struct{})
}

// applyToggles replays updates confirmed after load seq was issued, since the
// server may have answered that load before it saw them. Must be called with mu held.
func (d *Directory) applyToggles(seq uint64) {
	kept := d.toggles[:0]
	for _, t := range d.toggles {
		if t.seq < seq {
			continue
		}
		kept = append(kept, t)
		d.setFlag(t.id, t.authorized)
	}
	d.toggles = kept
}

func (d *Directory) setFlag(id UserID, authorized bool) {
	for i := range d.users {
		if d.users[i].ID == id {
			d.users[i].IsAuthorized = authorized
		}
	}
}

// SetAuthorization updates the flag remotely and, once confirmed, on the matching
// cached record. A failed update leaves the cache as it was. A confirmed update
// also survives loads that were already in flight.
func (d *Directory) SetAuthorization(ctx context.Context, api AdminAPI, token string, id UserID, authorized bool) error {
	if err := api.SetAuthorization(ctx, token, id, authorized); err != nil {
		return fmt.Errorf("%w: user %s: %w", ErrAuthorizationUpdate, id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.setFlag(id, authorized)
	if d.seq.Load() > d.settled {
		d.toggles = append(d.toggles, toggle{seq: d.seq.Load(), id: id, authorized: authorized})
	}
	return nil
}

// Users returns a copy of the cached records in server order.
func (d *Directory) Users() []UserRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneUsers(d.users)
}

// Clear empties the cache and invalidates loads still in flight.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	seq := d.seq.Inc()
	d.users = nil
	d.toggles = nil
	d.settle(seq)
}

func cloneUsers(users []UserRecord) []UserRecord {
	out := make([]UserRecord, len(users))
	copy(out, users)
	return out
}
