package hub

import (
	"testing"
	"time"

	codewords "github.com/bcspragu/Codewords"
)

// registerConn wires a bare connection into the hub without starting pumps,
// so tests control when (or whether) its send channel drains.
func registerConn(t *testing.T, h *Hub, code string, pID codewords.PlayerID, buf int) *connection {
	t.Helper()
	c := &connection{
		id:       newID(code),
		h:        h,
		code:     code,
		playerID: pID,
		send:     make(chan []byte, buf),
	}
	h.register <- c
	return c
}

func recvFrame(t *testing.T, c *connection) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed while expecting a frame")
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func wantClosed(t *testing.T, c *connection) {
	t.Helper()
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("got a frame on a connection that should have been dropped")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send channel was never closed")
	}
}

func TestToRoomDropsSlowSubscriber(t *testing.T) {
	h := New()

	// The stuck connection registers first so dropping it reshuffles the
	// room's slice while later subscribers still need their frame.
	stuck := registerConn(t, h, "ABC234", "p1", 0)
	live := registerConn(t, h, "ABC234", "p2", 4)

	if err := h.ToRoom("ABC234", "one"); err != nil {
		t.Fatalf("failed to broadcast: %v", err)
	}
	if got := string(recvFrame(t, live)); got != "\"one\"\n" {
		t.Errorf("first frame = %q, want %q", got, "\"one\"\n")
	}
	wantClosed(t, stuck)

	// The hub keeps serving the room after the drop.
	if err := h.ToRoom("ABC234", "two"); err != nil {
		t.Fatalf("failed to broadcast: %v", err)
	}
	if got := string(recvFrame(t, live)); got != "\"two\"\n" {
		t.Errorf("second frame = %q, want %q", got, "\"two\"\n")
	}
}

func TestToPlayerDropsSlowSubscriber(t *testing.T) {
	h := New()

	// Two tabs for the same player, the older one wedged.
	stuck := registerConn(t, h, "ABC234", "p1", 0)
	live := registerConn(t, h, "ABC234", "p1", 4)
	other := registerConn(t, h, "ABC234", "p2", 4)

	if err := h.ToPlayer("ABC234", "p1", "psst"); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	if got := string(recvFrame(t, live)); got != "\"psst\"\n" {
		t.Errorf("player frame = %q, want %q", got, "\"psst\"\n")
	}
	wantClosed(t, stuck)

	// The other player never sees targeted frames and stays registered.
	if err := h.ToRoom("ABC234", "all"); err != nil {
		t.Fatalf("failed to broadcast: %v", err)
	}
	if got := string(recvFrame(t, other)); got != "\"all\"\n" {
		t.Errorf("broadcast frame = %q, want %q", got, "\"all\"\n")
	}
}

func TestUnregisterAfterDrop(t *testing.T) {
	h := New()

	stuck := registerConn(t, h, "ABC234", "p1", 0)
	live := registerConn(t, h, "ABC234", "p2", 4)

	if err := h.ToRoom("ABC234", "one"); err != nil {
		t.Fatalf("failed to broadcast: %v", err)
	}
	recvFrame(t, live)
	wantClosed(t, stuck)

	// A readPump noticing the closed socket unregisters the connection the
	// hub already dropped. That must be a no-op, not a second close.
	h.unregister <- stuck

	if err := h.ToRoom("ABC234", "two"); err != nil {
		t.Fatalf("failed to broadcast: %v", err)
	}
	if got := string(recvFrame(t, live)); got != "\"two\"\n" {
		t.Errorf("frame after re-unregister = %q, want %q", got, "\"two\"\n")
	}
}
