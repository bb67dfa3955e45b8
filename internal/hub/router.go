package hub

import "snsu-notification/internal/domain"

// Target describes who receives a fanned-out event.
type Target struct {
	// All reaches every registered connection.
	All bool
	// Rooms are joined into one recipient set.
	Rooms []domain.Room
	// Origin adds the connection the event came from.
	Origin bool
	// OriginRoom reaches the sender when the event did not come from a live
	// connection (REST).
	OriginRoom domain.Room
}

// Router computes message fan-out from a role table built once at startup.
// Roles without an entry cannot broadcast.
type Router struct {
	broadcasts    map[domain.Role]Target
	adminsObserve bool
}

// NewRouter builds the fan-out table. When adminsObserveDirectMessages is
// set every direct message is also delivered to role_admin.
func NewRouter(adminsObserveDirectMessages bool) *Router {
	return &Router{
		broadcasts: map[domain.Role]Target{
			domain.RoleAdmin: {All: true},
			domain.RoleTeacher: {Rooms: []domain.Room{
				domain.RoleRoom(domain.RoleAdmin),
				domain.RoleRoom(domain.RoleTeacher),
				domain.RoleRoom(domain.RoleStudent),
			}},
		},
		adminsObserve: adminsObserveDirectMessages,
	}
}

// CanBroadcast reports whether role has a broadcast entry.
func (r *Router) CanBroadcast(role domain.Role) bool {
	_, ok := r.broadcasts[role]
	return ok
}

// MessageTargets returns the recipients of a new message sent by a user of
// senderRole. ok is false for a broadcast from a role without an entry.
func (r *Router) MessageTargets(senderRole domain.Role, msg *domain.Message) (Target, bool) {
	if msg.IsBroadcast {
		t, ok := r.broadcasts[senderRole]
		return t, ok
	}
	return r.direct(msg), true
}

// DeletionTargets returns the recipients of a message_deleted event.
func (r *Router) DeletionTargets(msg *domain.Message) Target {
	if msg.IsBroadcast {
		return Target{All: true}
	}
	t := r.direct(msg)
	t.Rooms = append(t.Rooms, domain.UserRoom(msg.SenderID))
	t.Origin = false
	return t
}

func (r *Router) direct(msg *domain.Message) Target {
	t := Target{Origin: true, OriginRoom: domain.UserRoom(msg.SenderID)}
	if msg.RecipientID != nil {
		t.Rooms = append(t.Rooms, domain.UserRoom(*msg.RecipientID))
	}
	if r.adminsObserve {
		t.Rooms = append(t.Rooms, domain.RoleRoom(domain.RoleAdmin))
	}
	return t
}
