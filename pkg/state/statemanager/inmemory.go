package statemanager

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Paras-00/Real-time-chat-application/pkg/state"
	"github.com/google/uuid"
)

type InMemoryManager struct {
	conns map[uuid.UUID]*state.Connection
	rooms map[string]*state.Room

	connMu sync.RWMutex
	roomMu sync.RWMutex

	logger *slog.Logger
}

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:  make(map[uuid.UUID]*state.Connection),
		rooms:  make(map[string]*state.Room),
		logger: logger.With(slog.String("component", "state_manager_inmemory")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ state.Manager = (*InMemoryManager)(nil)

func (m *InMemoryManager) RegisterConnection(peer state.Peer, ipAddr string) (*state.Connection, error) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	connID := peer.ID()
	if _, exists := m.conns[connID]; exists {
		return nil, errors.New("connection is already registered")
	}
	newConn := &state.Connection{
		ID:        connID,
		IPAddress: ipAddr,
		Transport: peer,
		Rooms:     make(map[string]*state.Room),
		CreatedAt: time.Now(),
	}
	m.conns[connID] = newConn
	m.logger.Debug("Connection registered", slog.String("connID", connID.String()))
	return newConn, nil
}

func (m *InMemoryManager) DeregisterConnection(connID uuid.UUID) (bool, error) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		// already deregistered; disconnect may race with other cleanup
		return false, nil
	}
	delete(m.conns, connID)

	// prune the connection's room memberships so routing never sees a
	// dead member. Empty rooms are discarded.
	m.roomMu.Lock()
	for roomID, room := range conn.Rooms {
		delete(room.Members, connID)
		if len(room.Members) == 0 {
			delete(m.rooms, roomID)
			m.logger.Debug("Removed empty room", slog.String("roomID", roomID))
		}
	}
	m.roomMu.Unlock()

	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()))
	return conn.Profile != nil, nil
}

func (m *InMemoryManager) GetConnection(connID uuid.UUID) (*state.Connection, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) Connections() []*state.Connection {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	conns := make([]*state.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	return conns
}

func (m *InMemoryManager) ConnectionCountByIP(ipAddr string) int {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	count := 0
	for _, c := range m.conns {
		if c.IPAddress == ipAddr {
			count++
		}
	}
	return count
}

// --- Presence ---

func (m *InMemoryManager) SetProfile(connID uuid.UUID, profile state.UserProfile) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return errors.New("cannot set profile on unknown connection")
	}
	if conn.Profile != nil {
		// re-announcing identity is unsupported; last write wins.
		m.logger.Warn("Profile re-set on connection",
			slog.String("connID", connID.String()),
			slog.String("username", profile.Username),
		)
	}
	conn.Profile = &profile
	m.logger.Debug("Profile bound to connection",
		slog.String("connID", connID.String()),
		slog.String("username", profile.Username),
	)
	return nil
}

func (m *InMemoryManager) ListProfiles() []state.UserProfile {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	profiles := make([]state.UserProfile, 0, len(m.conns))
	for _, c := range m.conns {
		if c.Profile != nil {
			profiles = append(profiles, *c.Profile)
		}
	}
	return profiles
}

// --- Room Membership ---

func (m *InMemoryManager) Join(connID uuid.UUID, roomID string) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return errors.New("cannot join room: connection not found")
	}

	// already a member; nothing to do.
	if _, exists := conn.Rooms[roomID]; exists {
		return nil
	}

	room, exists := m.rooms[roomID]
	if !exists {
		room = &state.Room{
			ID:      roomID,
			Members: make(map[uuid.UUID]*state.Connection),
		}
		m.rooms[roomID] = room
	}

	conn.Rooms[roomID] = room
	room.Members[connID] = conn

	m.logger.Debug("Connection joined room", "connID", connID.String(), "roomID", roomID)
	return nil
}

func (m *InMemoryManager) Leave(connID uuid.UUID, roomID string) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		// connection already gone; nothing to unlink.
		return nil
	}

	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}

	delete(conn.Rooms, roomID)
	delete(room.Members, connID)

	// For memory hygiene, remove the room if it's now empty.
	if len(room.Members) == 0 {
		delete(m.rooms, roomID)
		m.logger.Debug("Removed empty room", "roomID", roomID)
	}

	m.logger.Debug("Connection left room", "connID", connID.String(), "roomID", roomID)
	return nil
}

func (m *InMemoryManager) RoomMembers(roomID string) []*state.Connection {
	m.roomMu.RLock()
	defer m.roomMu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}

	members := make([]*state.Connection, 0, len(room.Members))
	for _, c := range room.Members {
		members = append(members, c)
	}
	return members
}

func (m *InMemoryManager) FindRoom(roomID string) (*state.Room, bool) {
	m.roomMu.RLock()
	defer m.roomMu.RUnlock()
	room, ok := m.rooms[roomID]
	return room, ok
}
