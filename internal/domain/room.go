package domain

import "fmt"

// Room names a broadcast group of live connections. Rooms are derived from
// identity or role at connect time and never persisted.
type Room string

// UserRoom is the identity room of a single user.
func UserRoom(userID uint) Room {
	return Room(fmt.Sprintf("user_%d", userID))
}

// RoleRoom is the room shared by every connection of the given role.
func RoleRoom(role Role) Room {
	return Room("role_" + string(role))
}

// RoomsFor returns the rooms a connection of this user joins, identity first.
func RoomsFor(userID uint, role Role) []Room {
	return []Room{UserRoom(userID), RoleRoom(role)}
}
