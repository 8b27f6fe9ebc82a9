package router_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Paras-00/Real-time-chat-application/internal/router"
	"github.com/Paras-00/Real-time-chat-application/internal/store"
	"github.com/Paras-00/Real-time-chat-application/pkg/state"
	"github.com/Paras-00/Real-time-chat-application/pkg/state/statemanager"
	"github.com/google/uuid"
)

// --- Test Suite Setup ---

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// fakePeer records every frame sent to it.
type fakePeer struct {
	id     uuid.UUID
	mu     sync.Mutex
	frames []router.Frame
}

func newFakePeer() *fakePeer { return &fakePeer{id: uuid.New()} }

func (p *fakePeer) ID() uuid.UUID { return p.id }

func (p *fakePeer) Send(msg []byte) {
	var frame router.Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		panic(fmt.Sprintf("fakePeer received an unparseable frame: %v", err))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
}

func (p *fakePeer) framesFor(event string) []router.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []router.Frame
	for _, f := range p.frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func (p *fakePeer) frameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// fakeStore is an in-memory MessageStore. When gate is non-nil,
// SaveMessage blocks until the gate is closed.
type fakeStore struct {
	mu       sync.Mutex
	messages []store.Message
	saveErr  error
	gate     chan struct{}
}

func (s *fakeStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if s.gate != nil {
		<-s.gate
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", len(s.messages)+1)
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeStore) RecentMessages(ctx context.Context, room string, limit int) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Message
	for _, m := range s.messages {
		if m.Room == room {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeStore) Close() {}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fixture struct {
	router  *router.EventRouter
	manager *statemanager.InMemoryManager
	store   *fakeStore
}

func newFixture() *fixture {
	logger := newTestLogger()
	manager := statemanager.NewInMemoryManager(logger)
	messageStore := &fakeStore{}
	return &fixture{
		router:  router.NewEventRouter(logger, manager, messageStore, router.Config{}),
		manager: manager,
		store:   messageStore,
	}
}

func (f *fixture) connect(t *testing.T) *fakePeer {
	t.Helper()
	peer := newFakePeer()
	if _, err := f.manager.RegisterConnection(peer, "127.0.0.1"); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}
	return peer
}

func (f *fixture) dispatch(t *testing.T, peer *fakePeer, event string, payload string) {
	t.Helper()
	raw := fmt.Sprintf(`{"event":%q,"payload":%s}`, event, payload)
	f.router.HandleMessage(context.Background(), peer.ID(), []byte(raw))
}

func decodeProfiles(t *testing.T, frame router.Frame) []state.UserProfile {
	t.Helper()
	var profiles []state.UserProfile
	if err := json.Unmarshal(frame.Payload, &profiles); err != nil {
		t.Fatalf("Failed to decode online_users payload: %v", err)
	}
	return profiles
}

// --- Presence Tests ---

func TestUserJoinBroadcastsPresenceToAll(t *testing.T) {
	f := newFixture()
	alice := f.connect(t)
	lurker := f.connect(t) // connected, never announces a profile

	f.dispatch(t, alice, "user_join", `{"username":"alice","avatar":"a.png"}`)

	for _, peer := range []*fakePeer{alice, lurker} {
		frames := peer.framesFor("online_users")
		if len(frames) != 1 {
			t.Fatalf("Expected 1 online_users frame, got %d", len(frames))
		}
		profiles := decodeProfiles(t, frames[0])
		if len(profiles) != 1 || profiles[0].Username != "alice" {
			t.Errorf("Expected presence [alice], got %+v", profiles)
		}
	}
}

func TestPresenceReflectsJoinsAndDisconnects(t *testing.T) {
	f := newFixture()
	alice := f.connect(t)
	bob := f.connect(t)

	f.dispatch(t, alice, "user_join", `{"username":"alice"}`)
	f.dispatch(t, bob, "user_join", `{"username":"bob"}`)

	frames := alice.framesFor("online_users")
	if len(frames) != 2 {
		t.Fatalf("Expected 2 online_users frames, got %d", len(frames))
	}
	profiles := decodeProfiles(t, frames[1])
	if len(profiles) != 2 {
		t.Fatalf("Expected 2 online profiles, got %d", len(profiles))
	}
	seen := map[string]int{}
	for _, p := range profiles {
		seen[p.Username]++
	}
	if seen["alice"] != 1 || seen["bob"] != 1 {
		t.Errorf("Presence list has duplicates or missing entries: %+v", profiles)
	}

	// bob disconnects; alice sees a fresh list without him and without dupes.
	f.router.HandleDisconnect(bob.ID())
	frames = alice.framesFor("online_users")
	if len(frames) != 3 {
		t.Fatalf("Expected a presence broadcast on disconnect, got %d frames", len(frames))
	}
	profiles = decodeProfiles(t, frames[2])
	if len(profiles) != 1 || profiles[0].Username != "alice" {
		t.Errorf("Expected presence [alice] after disconnect, got %+v", profiles)
	}
}

func TestDisconnectWithoutProfileIsSilent(t *testing.T) {
	f := newFixture()
	alice := f.connect(t)
	lurker := f.connect(t)
	f.dispatch(t, alice, "user_join", `{"username":"alice"}`)
	before := alice.frameCount()

	f.router.HandleDisconnect(lurker.ID())

	if alice.frameCount() != before {
		t.Error("Disconnect of a profile-less connection must not broadcast presence")
	}
}

// --- Message Tests ---

func TestMessageBroadcastToWholeRoomAndPersisted(t *testing.T) {
	f := newFixture()
	x := f.connect(t)
	y := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)
	f.dispatch(t, y, "join_room", `"general"`)

	f.dispatch(t, x, "message", `{"sender":"x","content":"hi","room":"general"}`)

	for _, peer := range []*fakePeer{x, y} {
		frames := peer.framesFor("message")
		if len(frames) != 1 {
			t.Fatalf("Expected exactly 1 message frame, got %d", len(frames))
		}
		var msg store.Message
		if err := json.Unmarshal(frames[0].Payload, &msg); err != nil {
			t.Fatalf("Failed to decode message payload: %v", err)
		}
		if msg.Content != "hi" || msg.Sender != "x" {
			t.Errorf("Unexpected message payload: %+v", msg)
		}
		if msg.ID == "" {
			t.Error("Broadcast message is missing its persisted id")
		}
	}

	// A later joiner reads the message back as history.
	z := f.connect(t)
	f.dispatch(t, z, "join_room", `"general"`)
	frames := z.framesFor("init_messages")
	if len(frames) != 1 {
		t.Fatalf("Expected init_messages for late joiner, got %d frames", len(frames))
	}
	var history []store.Message
	if err := json.Unmarshal(frames[0].Payload, &history); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hi" {
		t.Errorf("Expected history [hi], got %+v", history)
	}
}

func TestMessageNotBroadcastUntilPersisted(t *testing.T) {
	f := newFixture()
	f.store.gate = make(chan struct{})
	x := f.connect(t)
	y := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)
	f.dispatch(t, y, "join_room", `"general"`)
	// the gated store makes join_room history reads cheap: none were sent yet.

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.dispatch(t, x, "message", `{"sender":"x","content":"hi","room":"general"}`)
	}()

	// While persistence is blocked, nobody observes the message.
	time.Sleep(20 * time.Millisecond)
	if n := len(x.framesFor("message")) + len(y.framesFor("message")); n != 0 {
		t.Fatalf("Message was broadcast before persistence completed (%d frames)", n)
	}

	close(f.store.gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Message dispatch did not finish after persistence unblocked")
	}

	if len(x.framesFor("message")) != 1 || len(y.framesFor("message")) != 1 {
		t.Error("Expected the message to be broadcast after persistence resolved")
	}
}

func TestMessageDroppedWhenPersistenceFails(t *testing.T) {
	f := newFixture()
	f.store.saveErr = fmt.Errorf("store unavailable")
	x := f.connect(t)
	y := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)
	f.dispatch(t, y, "join_room", `"general"`)

	f.dispatch(t, x, "message", `{"sender":"x","content":"hi","room":"general"}`)

	if n := len(x.framesFor("message")) + len(y.framesFor("message")); n != 0 {
		t.Errorf("Expected no broadcast on persistence failure, got %d frames", n)
	}
}

func TestMessageDefaultsToFallbackRoom(t *testing.T) {
	f := newFixture()
	x := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)

	f.dispatch(t, x, "message", `{"sender":"x","content":"no room set"}`)

	frames := x.framesFor("message")
	if len(frames) != 1 {
		t.Fatalf("Expected message in fallback room, got %d frames", len(frames))
	}
	var msg store.Message
	json.Unmarshal(frames[0].Payload, &msg)
	if msg.Room != "general" {
		t.Errorf("Expected fallback room general, got %q", msg.Room)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected a server-assigned timestamp")
	}
}

// --- Typing Tests ---

func TestTypingExcludesSender(t *testing.T) {
	f := newFixture()
	x := f.connect(t)
	y := f.connect(t)
	z := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)
	f.dispatch(t, y, "join_room", `"general"`)
	f.dispatch(t, z, "join_room", `"general"`)

	f.dispatch(t, x, "typing", `{"isTyping":true,"room":"general"}`)

	if n := len(x.framesFor("typing")); n != 0 {
		t.Errorf("Sender received its own typing echo (%d frames)", n)
	}
	for _, peer := range []*fakePeer{y, z} {
		if n := len(peer.framesFor("typing")); n != 1 {
			t.Errorf("Expected 1 typing frame for room member, got %d", n)
		}
	}
}

// --- Boundary Tests ---

func TestMalformedFramesAreDropped(t *testing.T) {
	f := newFixture()
	x := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)
	before := x.frameCount()

	cases := []string{
		`{not json`,
		`{"event":"no_such_event","payload":{}}`,
		`{"event":"user_join","payload":{"avatar":"only.png"}}`,
		`{"event":"message","payload":{"content":"no sender"}}`,
		`{"event":"message","payload":{"sender":"x"}}`,
		`{"event":"typing","payload":{"isTyping":true}}`,
		`{"event":"media_action","payload":{"room":"general","type":"explode"}}`,
		`{"event":"join_room","payload":42}`,
	}
	for _, raw := range cases {
		f.router.HandleMessage(context.Background(), x.ID(), []byte(raw))
	}

	if x.frameCount() != before {
		t.Errorf("Malformed frames produced output (%d new frames)", x.frameCount()-before)
	}
	if f.store.count() != 0 {
		t.Errorf("Malformed frames reached the store (%d messages)", f.store.count())
	}
}

func TestEventFromUnknownConnectionIsDropped(t *testing.T) {
	f := newFixture()
	ghost := newFakePeer() // never registered
	f.dispatch(t, ghost, "user_join", `{"username":"ghost"}`)
	if f.store.count() != 0 || ghost.frameCount() != 0 {
		t.Error("Event from an unregistered connection had side effects")
	}
}

// --- Leave Tests ---

func TestLeaveRoomIsSilentAndStopsDelivery(t *testing.T) {
	f := newFixture()
	x := f.connect(t)
	y := f.connect(t)
	f.dispatch(t, x, "join_room", `"general"`)
	f.dispatch(t, y, "join_room", `"general"`)

	f.dispatch(t, y, "leave_room", `"general"`)
	if n := y.frameCount(); n != 1 { // only its own init_messages
		t.Errorf("leave_room must be silent, got %d frames", n)
	}

	f.dispatch(t, x, "message", `{"sender":"x","content":"hi","room":"general"}`)
	if n := len(y.framesFor("message")); n != 0 {
		t.Errorf("Departed member still received %d message frames", n)
	}
}
