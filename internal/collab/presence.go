package collab

import "maps"

// presenceSet tracks what each connected user is pointing at. It is owned
// by the room goroutine.
type presenceSet map[string]*PresencePayload

func (ps presenceSet) update(userID string, p *PresencePayload) {
	ps[userID] = p
}

func (ps presenceSet) remove(userID string) {
	delete(ps, userID)
}

func (ps presenceSet) stateMessage() (*Message, error) {
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: maps.Clone(ps)})
}
