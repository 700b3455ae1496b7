package broadcast

import (
	"cmp"
	"slices"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
)

// Registry tracks connected sessions and room membership. It is not safe
// for concurrent use; the engine loop owns it.
type Registry struct {
	sessions map[string]*Session            // sessionID -> Session
	rooms    map[string]map[string]*Session // room -> members
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

// Add records a connected session.
func (r *Registry) Add(s *Session) {
	r.sessions[s.ID] = s
}

// Has reports whether s is connected.
func (r *Registry) Has(s *Session) bool {
	return r.sessions[s.ID] == s
}

// Remove forgets a session and its membership.
func (r *Registry) Remove(s *Session) {
	r.Leave(s)
	delete(r.sessions, s.ID)
}

// Enter puts s in room. The caller leaves the previous room first. Codes not
// in normalized form are ignored.
func (r *Registry) Enter(s *Session, room string) bool {
	if !domain.IsRoomCode(room) {
		return false
	}
	r.Leave(s)
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]*Session)
	}
	r.rooms[room][s.ID] = s
	s.room = room
	return true
}

// Leave removes s from its room. It reports false when s had no room.
func (r *Registry) Leave(s *Session) (string, bool) {
	room := s.room
	if room == "" {
		return "", false
	}
	if members := r.rooms[room]; members != nil {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	s.room = ""
	return room, true
}

// Members returns the sessions in room.
func (r *Registry) Members(room string) []*Session {
	members := make([]*Session, 0, len(r.rooms[room]))
	for _, s := range r.rooms[room] {
		members = append(members, s)
	}
	return members
}

// Sessions returns every connected session.
func (r *Registry) Sessions() []*Session {
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}

// OnlineCount returns the member count of room.
func (r *Registry) OnlineCount(room string) int {
	return len(r.rooms[room])
}

// ConnectionCount returns the number of connected sessions.
func (r *Registry) ConnectionCount() int {
	return len(r.sessions)
}

// OpenRooms lists rooms with members, busiest first, ties by code.
func (r *Registry) OpenRooms() []domain.RoomCount {
	list := make([]domain.RoomCount, 0, len(r.rooms))
	for room, members := range r.rooms {
		if len(members) > 0 {
			list = append(list, domain.RoomCount{Room: room, Count: len(members)})
		}
	}
	slices.SortFunc(list, func(a, b domain.RoomCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Room, b.Room)
	})
	return list
}
