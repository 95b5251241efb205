// Package conndir maps stable player identifiers to the live transport
// channel currently representing them. It is process-wide and has its own
// lock; rooms never block on it and it never blocks on rooms.
package conndir

import "sync"

// Conn is whatever the transport layer uses to push to one client. The
// directory only needs enough surface to evict a superseded connection.
type Conn interface {
	Kick(reason string)
}

type Directory struct {
	mu       sync.RWMutex
	byPlayer map[string]Conn
	byConn   map[Conn]string
}

func New() *Directory {
	return &Directory{
		byPlayer: make(map[string]Conn),
		byConn:   make(map[Conn]string),
	}
}

// Bind attaches conn as the player's current channel, superseding and
// returning any previous one. Rebinding the same conn is a no-op.
func (d *Directory) Bind(playerID string, conn Conn) (prev Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev = d.byPlayer[playerID]
	if prev == conn {
		return nil
	}
	if prev != nil {
		delete(d.byConn, prev)
	}
	d.byPlayer[playerID] = conn
	d.byConn[conn] = playerID
	return prev
}

// Unbind removes conn in both directions, but only if it is still the
// player's current channel; an orphaned connection unbinding late must not
// evict its successor.
func (d *Directory) Unbind(conn Conn) (playerID string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	playerID, ok = d.byConn[conn]
	if !ok {
		return "", false
	}
	delete(d.byConn, conn)
	if d.byPlayer[playerID] == conn {
		delete(d.byPlayer, playerID)
	}
	return playerID, true
}

// ResolvePlayer returns the player's live channel. A miss means the player
// currently has no channel; callers skip targeted delivery rather than fail.
func (d *Directory) ResolvePlayer(playerID string) (Conn, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byPlayer[playerID]
	return c, ok
}

// ResolveConn returns the player a channel represents.
func (d *Directory) ResolveConn(conn Conn) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byConn[conn]
	return id, ok
}
