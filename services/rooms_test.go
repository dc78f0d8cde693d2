package services

import "testing"

func TestChatRoomIDCommutative(t *testing.T) {
	a := ParticipantKey("teacher", 5)
	b := ParticipantKey("student", 12)

	if ChatRoomID(a, b) != ChatRoomID(b, a) {
		t.Fatalf("room id depends on argument order: %q vs %q", ChatRoomID(a, b), ChatRoomID(b, a))
	}
}

func TestChatRoomIDDistinctPairs(t *testing.T) {
	room1 := ChatRoomID(ParticipantKey("teacher", 1), ParticipantKey("student", 2))
	room2 := ChatRoomID(ParticipantKey("teacher", 1), ParticipantKey("student", 3))
	if room1 == room2 {
		t.Fatal("different participant pairs mapped to the same room")
	}
}

func TestParticipantKeyAvoidsModelCollision(t *testing.T) {
	// A teacher and a student can share a row ID; their keys must differ.
	if ParticipantKey("teacher", 5) == ParticipantKey("student", 5) {
		t.Fatal("participant keys collide across models")
	}
}

func TestValidRoleRoom(t *testing.T) {
	for _, role := range []string{"teachers", "students", "admins"} {
		if !ValidRoleRoom(role) {
			t.Fatalf("expected %q to be a valid role room", role)
		}
	}
	for _, role := range []string{"teacher", "all", "", "everyone"} {
		if ValidRoleRoom(role) {
			t.Fatalf("expected %q to be rejected", role)
		}
	}
}

func TestRoleRoomKeyScopedBySchool(t *testing.T) {
	if RoleRoomKey(1, "teachers") == RoleRoomKey(2, "teachers") {
		t.Fatal("role rooms of different schools collide")
	}
}
