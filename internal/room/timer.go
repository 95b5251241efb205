package room

import (
	"context"
	"time"
)

// runTimer drives one active round at a fixed one-second cadence. Its lifetime
// is bound to the round: the actor cancels ctx the moment the round ends for
// any reason, and the tick handler drops anything stale that slipped through,
// so a timer can neither leak nor fire for a round it no longer owns.
func (r *Room) runTimer(ctx context.Context, number int) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			select {
			case r.inbox <- tickMsg{number: number}:
			case <-ctx.Done():
				return
			case <-r.ctx.Done():
				return
			}
		}
	}
}
