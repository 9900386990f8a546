package collab

import (
	"sort"
	"sync"
)

// Registry tracks which participants are active on which form.
// A participant occupies at most one room in the inverse index; joining a
// second room overwrites it without leaving the first.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[int64]map[string]struct{}
	current map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[int64]map[string]struct{}),
		current: make(map[string]int64),
	}
}

func (r *Registry) Join(participant string, room int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[participant] = struct{}{}
	r.current[participant] = room
}

// Leave removes participant from room and drops the room once it is empty.
func (r *Registry) Leave(participant string, room int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[room]; ok {
		delete(members, participant)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if current, ok := r.current[participant]; ok && current == room {
		delete(r.current, participant)
	}
}

// MembersOf returns the sorted participants of room, empty for unknown rooms.
func (r *Registry) MembersOf(room int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[room]))
	for p := range r.rooms[room] {
		members = append(members, p)
	}
	sort.Strings(members)
	return members
}

func (r *Registry) RoomOf(participant string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.current[participant]
	return room, ok
}

// Rooms lists the rooms that currently have members.
func (r *Registry) Rooms() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]int64, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

type presenceKey struct {
	participant string
	room        int64
}

// presence counts live connections per participant and room in front of a
// Registry, so a participant leaves a room only when their last connection
// to it closes.
type presence struct {
	mu       sync.Mutex
	registry *Registry
	conns    map[presenceKey]int
}

func newPresence(registry *Registry) *presence {
	return &presence{registry: registry, conns: make(map[presenceKey]int)}
}

func (p *presence) attach(participant string, room int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[presenceKey{participant, room}]++
	p.registry.Join(participant, room)
}

func (p *presence) detach(participant string, room int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := presenceKey{participant, room}
	if p.conns[key] > 1 {
		p.conns[key]--
		return
	}
	delete(p.conns, key)
	p.registry.Leave(participant, room)
}
