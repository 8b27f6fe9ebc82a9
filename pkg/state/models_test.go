package state_test

import (
	"testing"

	"github.com/Paras-00/Real-time-chat-application/pkg/state"
)

func TestDMKeyIsCommutative(t *testing.T) {
	ab := state.DMKey("alice", "bob")
	ba := state.DMKey("bob", "alice")
	if ab != ba {
		t.Errorf("DMKey is not commutative: %q != %q", ab, ba)
	}
}

func TestDMKeySortsParticipants(t *testing.T) {
	got := state.DMKey("zed", "amy")
	want := "dm_amy_zed"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDMKeySameUser(t *testing.T) {
	got := state.DMKey("amy", "amy")
	want := "dm_amy_amy"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
