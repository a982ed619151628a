package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

type ConnectionID string

// Connection is one live transport session bound to a verified
// identity. The signal endpoint is owned by the adapter; the registry
// only fans frames out to it.
type Connection struct {
	ID       ConnectionID
	Identity domain.Identity
	signal   core.SignalConnection
}

func (c *Connection) Signal() core.SignalConnection { return c.signal }

// Registry tracks live connections. It is the single owner of
// connection records; room membership lives in the Directory.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnectionID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnectionID]*Connection)}
}

// Register creates a connection record for an already-verified
// identity. Credential verification happens before this point; an
// unverifiable credential never reaches the registry.
func (r *Registry) Register(identity domain.Identity, signal core.SignalConnection) *Connection {
	conn := &Connection{
		ID:       ConnectionID(uuid.NewString()),
		Identity: identity,
		signal:   signal,
	}
	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(conn.ID)).Str("user", string(identity.UserID)).Msg("connection registered")
	return conn
}

func (r *Registry) Get(id ConnectionID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

func (r *Registry) Unregister(id ConnectionID) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection unregistered")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
