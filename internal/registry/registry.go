// Package registry owns the set of active lobbies and the code index. It is
// the only process-wide structure besides the connection directory, and it has
// its own serialization (one actor goroutine) so two rooms never block each
// other through it. Rooms report membership changes by pushing descriptions;
// the registry never reaches into a room's state.
package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/internal/ident"
	"github.com/classified-intel/backend/internal/room"
)

const codeLength = 6

type Options struct {
	Log *zap.Logger
	// Room is the template for per-room options; the registry fills in the
	// OnUpdate and OnRemove callbacks itself.
	Room room.Options
}

type Registry struct {
	inbox  chan message
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	opts   Options

	rooms map[string]*room.Room
	codes map[string]string
	descs map[string]room.Description
}

func New(parent context.Context, opts Options) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	g := &Registry{
		inbox:  make(chan message, 64),
		ctx:    ctx,
		cancel: cancel,
		log:    opts.Log,
		opts:   opts,
		rooms:  make(map[string]*room.Room),
		codes:  make(map[string]string),
		descs:  make(map[string]room.Description),
	}
	go g.loop()
	return g
}

type message interface{ isRegistryMsg() }

type createMsg struct {
	visibility engine.Visibility
	reply      chan createReply
}

type createReply struct {
	room *room.Room
	err  error
}

type getByIDMsg struct {
	id    string
	reply chan *room.Room
}

type getByCodeMsg struct {
	code  string
	reply chan *room.Room
}

type quickMatchMsg struct {
	playerID string
	name     string
	reply    chan quickMatchReply
}

type quickMatchReply struct {
	room    *room.Room
	created bool
	err     error
}

type removeMsg struct{ id string }

type updateDescMsg struct{ desc room.Description }

type listPublicMsg struct {
	reply chan []room.Description
}

type shutdownMsg struct{}

func (createMsg) isRegistryMsg()     {}
func (getByIDMsg) isRegistryMsg()    {}
func (getByCodeMsg) isRegistryMsg()  {}
func (quickMatchMsg) isRegistryMsg() {}
func (removeMsg) isRegistryMsg()     {}
func (updateDescMsg) isRegistryMsg() {}
func (listPublicMsg) isRegistryMsg() {}
func (shutdownMsg) isRegistryMsg()   {}

func request[R any](ctx context.Context, g *Registry, m message, reply <-chan R) (R, error) {
	var zero R
	select {
	case g.inbox <- m:
	case <-g.ctx.Done():
		return zero, engine.ErrNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-g.ctx.Done():
		return zero, engine.ErrNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create makes a fresh empty room with a unique code.
func (g *Registry) Create(ctx context.Context, visibility engine.Visibility) (*room.Room, error) {
	reply := make(chan createReply, 1)
	rep, err := request(ctx, g, createMsg{visibility: visibility, reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return rep.room, rep.err
}

// GetByID returns the room or ErrNotFound.
func (g *Registry) GetByID(ctx context.Context, id string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	rm, err := request(ctx, g, getByIDMsg{id: id, reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, engine.ErrNotFound
	}
	return rm, nil
}

// GetByCode looks a room up by its join code, case-insensitively.
func (g *Registry) GetByCode(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	rm, err := request(ctx, g, getByCodeMsg{code: normalizeCode(code), reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, engine.ErrNotFound
	}
	return rm, nil
}

// QuickMatch places the player in the first public waiting room that already
// has someone in it, or creates a fresh public room. The fresh-room creator is
// joined already connected; everyone else connects when their channel
// attaches.
func (g *Registry) QuickMatch(ctx context.Context, playerID, name string) (*room.Room, bool, error) {
	reply := make(chan quickMatchReply, 1)
	rep, err := request(ctx, g, quickMatchMsg{playerID: playerID, name: name, reply: reply}, reply)
	if err != nil {
		return nil, false, err
	}
	return rep.room, rep.created, rep.err
}

// ListPublic returns descriptions of public rooms, for a lobby browser.
func (g *Registry) ListPublic(ctx context.Context) ([]room.Description, error) {
	reply := make(chan []room.Description, 1)
	return request(ctx, g, listPublicMsg{reply: reply}, reply)
}

// Shutdown stops every room and then the registry itself.
func (g *Registry) Shutdown() {
	select {
	case g.inbox <- shutdownMsg{}:
	case <-g.ctx.Done():
	}
}

func (g *Registry) loop() {
	for {
		select {
		case <-g.ctx.Done():
			g.shutdownRooms()
			return

		case m := <-g.inbox:
			switch msg := m.(type) {
			case createMsg:
				msg.reply <- g.handleCreate(msg.visibility)
			case getByIDMsg:
				msg.reply <- g.rooms[msg.id]
			case getByCodeMsg:
				msg.reply <- g.rooms[g.codes[msg.code]]
			case quickMatchMsg:
				msg.reply <- g.handleQuickMatch(msg)
			case removeMsg:
				g.handleRemove(msg.id)
			case updateDescMsg:
				if _, ok := g.rooms[msg.desc.ID]; ok {
					g.descs[msg.desc.ID] = msg.desc
				}
			case listPublicMsg:
				msg.reply <- g.publicDescs()
			case shutdownMsg:
				g.shutdownRooms()
				g.cancel()
				return
			}
		}
	}
}

func (g *Registry) handleCreate(visibility engine.Visibility) createReply {
	code, err := g.freshCode()
	if err != nil {
		return createReply{err: err}
	}
	id := uuid.NewString()

	opts := g.opts.Room
	opts.Log = g.log
	opts.OnUpdate = g.pushDesc
	opts.OnRemove = g.requestRemove

	rm := room.New(g.ctx, id, code, visibility, opts)
	g.rooms[id] = rm
	g.codes[code] = id
	g.descs[id] = room.Description{
		ID:         id,
		Code:       code,
		Visibility: visibility,
		Status:     engine.StatusWaiting,
	}
	g.log.Info("lobby created", zap.String("lobby", code), zap.String("visibility", string(visibility)))
	return createReply{room: rm}
}

func (g *Registry) handleQuickMatch(msg quickMatchMsg) quickMatchReply {
	for id, d := range g.descs {
		if d.Visibility == engine.VisibilityPublic && d.Status == engine.StatusWaiting && d.Players >= 1 {
			rm := g.rooms[id]
			if rm == nil {
				continue
			}
			if _, err := rm.Join(g.ctx, msg.playerID, msg.name, false); err != nil {
				continue
			}
			return quickMatchReply{room: rm}
		}
	}

	// Nobody to match with: the first arrival opens a fresh room and is
	// connected immediately so updates reach them before a channel join.
	rep := g.handleCreate(engine.VisibilityPublic)
	if rep.err != nil {
		return quickMatchReply{err: rep.err}
	}
	if _, err := rep.room.Join(g.ctx, msg.playerID, msg.name, true); err != nil {
		return quickMatchReply{err: err}
	}
	return quickMatchReply{room: rep.room, created: true}
}

func (g *Registry) handleRemove(id string) {
	rm, ok := g.rooms[id]
	if !ok {
		return
	}
	delete(g.rooms, id)
	delete(g.descs, id)
	// Codes are unique only while the lobby lives; this frees the code for
	// reuse by a future room.
	delete(g.codes, rm.Code())
	g.log.Info("lobby removed", zap.String("lobby", rm.Code()))
}

func (g *Registry) freshCode() (string, error) {
	for {
		code, err := ident.Code(codeLength)
		if err != nil {
			return "", err
		}
		if _, taken := g.codes[code]; !taken {
			return code, nil
		}
	}
}

func (g *Registry) publicDescs() []room.Description {
	out := make([]room.Description, 0, len(g.descs))
	for _, d := range g.descs {
		if d.Visibility == engine.VisibilityPublic {
			out = append(out, d)
		}
	}
	return out
}

func (g *Registry) shutdownRooms() {
	for _, rm := range g.rooms {
		rm.Shutdown()
	}
	clear(g.rooms)
	clear(g.codes)
	clear(g.descs)
	g.cancel()
}

// pushDesc is called from room goroutines; it must never block them.
func (g *Registry) pushDesc(d room.Description) {
	select {
	case g.inbox <- updateDescMsg{desc: d}:
	default:
	}
}

// requestRemove is called from room goroutines. Removal must not be lost, so
// on a full inbox it retries from a detached goroutine instead of dropping.
func (g *Registry) requestRemove(id string) {
	select {
	case g.inbox <- removeMsg{id: id}:
	default:
		go func() {
			select {
			case g.inbox <- removeMsg{id: id}:
			case <-g.ctx.Done():
			}
		}()
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
