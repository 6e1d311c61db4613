// Package session enforces one live socket per (room, user): a
// reconnect evicts the prior socket, a join carries a short dedup
// lock, and a disconnect starts a grace window before the user is
// actually dropped from the room.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultGraceWindow is how long a disconnected socket's seat is held
// open before the expiry callback treats the user as gone (overridable
// per deployment via config).
const DefaultGraceWindow = 90 * time.Second

// Evictor closes a previous socket that lost ownership of its
// (room, user) slot, implemented by the transport layer.
type Evictor interface {
	Evict(socketID string, reason string)
}

type entry struct {
	socketID string
	graceEnd *time.Timer
}

// Layer is the process-local userId->socketId registry plus the
// per-join dedup lock and disconnect grace timers. One Layer per
// server instance; it is NOT shared across instances, matching the
// "single process owns a room's live connections" assumption the rest
// of the engine makes.
type Layer struct {
	mu       sync.Mutex
	sessions map[string]*entry // key: roomCode+":"+userID
	joining  map[string]bool
	evictor  Evictor
	grace    time.Duration
	log      *zap.SugaredLogger
}

func New(evictor Evictor, grace time.Duration, log *zap.SugaredLogger) *Layer {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	return &Layer{
		sessions: make(map[string]*entry),
		joining:  make(map[string]bool),
		evictor:  evictor,
		grace:    grace,
		log:      log,
	}
}

func sessionKey(roomCode, userID string) string { return roomCode + ":" + userID }

// TryLockJoin acquires the short-lived join dedup lock for (room,
// user); returns false if a join for the same pair is already
// in-flight on another goroutine/socket.
func (l *Layer) TryLockJoin(roomCode, userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := sessionKey(roomCode, userID)
	if l.joining[key] {
		return false
	}
	l.joining[key] = true
	return true
}

func (l *Layer) UnlockJoin(roomCode, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.joining, sessionKey(roomCode, userID))
}

// Register binds socketID as the live connection for (room, user),
// forcibly evicting whatever socket previously held that slot and
// cancelling any pending disconnect-grace timer for it.
func (l *Layer) Register(roomCode, userID, socketID string) {
	l.mu.Lock()
	key := sessionKey(roomCode, userID)
	prev, existed := l.sessions[key]
	l.sessions[key] = &entry{socketID: socketID}
	l.mu.Unlock()

	if existed {
		if prev.graceEnd != nil {
			prev.graceEnd.Stop()
		}
		if prev.socketID != socketID {
			l.log.Infow("[SessionLayer] evicting prior socket on reconnect", "room", roomCode, "user", userID)
			l.evictor.Evict(prev.socketID, "replaced_by_new_connection")
		}
	}
}

// Disconnect starts the grace window for (room, user); onExpire is
// invoked only if no Register call supersedes it first.
func (l *Layer) Disconnect(roomCode, userID, socketID string, onExpire func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := sessionKey(roomCode, userID)
	e, ok := l.sessions[key]
	if !ok || e.socketID != socketID {
		return // already superseded by a newer connection
	}
	e.graceEnd = time.AfterFunc(l.grace, func() {
		l.mu.Lock()
		cur, ok := l.sessions[key]
		stillCurrent := ok && cur.socketID == socketID
		if stillCurrent {
			delete(l.sessions, key)
		}
		l.mu.Unlock()
		if stillCurrent {
			onExpire()
		}
	})
}

// Forget drops a (room, user) session immediately, used when the user
// leaves voluntarily rather than disconnecting.
func (l *Layer) Forget(roomCode, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := sessionKey(roomCode, userID)
	if e, ok := l.sessions[key]; ok {
		if e.graceEnd != nil {
			e.graceEnd.Stop()
		}
		delete(l.sessions, key)
	}
}

// SocketFor returns the current live socket for (room, user), if any.
func (l *Layer) SocketFor(roomCode, userID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.sessions[sessionKey(roomCode, userID)]
	if !ok {
		return "", false
	}
	return e.socketID, true
}
