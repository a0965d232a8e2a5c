package realtime

// Room identifiers are plain strings: "user:<userId>" for the private
// per-user room and "conversation:<conversationId>" for chat rooms.
const (
	userRoomPrefix         = "user:"
	conversationRoomPrefix = "conversation:"
)

func UserRoom(userID string) string {
	return userRoomPrefix + userID
}

func ConversationRoom(conversationID string) string {
	return conversationRoomPrefix + conversationID
}

// Rooms tracks which connections belong to which broadcast group. Touched
// only from the hub goroutine, so it carries no lock.
type Rooms struct {
	members map[string]map[string]Client   // room -> connID -> client
	byConn  map[string]map[string]struct{} // connID -> set of rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]Client),
		byConn:  make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to a room. Idempotent.
func (r *Rooms) Join(room string, c Client) {
	connID := c.GetConnID()
	if r.members[room] == nil {
		r.members[room] = make(map[string]Client)
	}
	r.members[room][connID] = c

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][room] = struct{}{}
}

// Leave removes the connection from a room. Idempotent.
func (r *Rooms) Leave(room, connID string) {
	if members, ok := r.members[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, room)
		}
	}
	if rooms, ok := r.byConn[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// DropConnection removes all of a connection's memberships.
func (r *Rooms) DropConnection(connID string) {
	for room := range r.byConn[connID] {
		if members, ok := r.members[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.members, room)
			}
		}
	}
	delete(r.byConn, connID)
}

// Members returns the connections currently in a room.
func (r *Rooms) Members(room string) []Client {
	members := r.members[room]
	out := make([]Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// Contains reports whether a connection is in a room.
func (r *Rooms) Contains(room, connID string) bool {
	_, ok := r.members[room][connID]
	return ok
}
