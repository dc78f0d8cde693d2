package services

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"
)

// ChatRoomID returns the canonical room for a two-party conversation:
// the two participant identifiers sorted and joined, so both sides
// derive the same room regardless of argument order.
func ChatRoomID(idA, idB string) string {
	ids := []string{idA, idB}
	sort.Strings(ids)
	return fmt.Sprintf("%s_%s", ids[0], ids[1])
}

// ParticipantKey stringifies a participant for room addressing. The
// model prefix keeps a teacher and a student with the same row ID from
// colliding into one conversation.
func ParticipantKey(model string, id uint) string {
	return fmt.Sprintf("%s-%d", model, id)
}

// Role rooms clients may subscribe to for broadcast delivery.
var roleRooms = []string{"teachers", "students", "admins"}

func ValidRoleRoom(role string) bool {
	return slices.Contains(roleRooms, role)
}

// RoleRoomKey scopes a role room to one school.
func RoleRoomKey(schoolID uint, role string) string {
	return fmt.Sprintf("school-%d_%s", schoolID, role)
}
