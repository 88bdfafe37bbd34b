package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/towerman/internal/store"
	"github.com/DoyleJ11/towerman/internal/wire"
)

// helper: receive one frame with a timeout so tests never hang
func recvFrame(t *testing.T, ch <-chan []byte, within time.Duration) wire.Frame {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		f, err := wire.Decode(b)
		require.NoError(t, err)
		return f
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return wire.Frame{}
	}
}

func recvNoFrame(t *testing.T, ch <-chan []byte, within time.Duration) {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no frame within %v, got %s", within, b)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, r *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func newRoom(t *testing.T, st store.Store) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, baseState(), Config{Store: st})
}

func join(t *testing.T, r *Room, id, email string) chan []byte {
	t.Helper()
	out := make(chan []byte, 16)
	r.Inbox() <- Join{ClientID: id, Email: email, Outbox: out}
	f := recvFrame(t, out, 100*time.Millisecond)
	require.Equal(t, wire.Connection{TeamID: "t1"}, f.Event)
	return out
}

func TestRoom_BroadcastsToEveryClient(t *testing.T) {
	r := newRoom(t, nil)
	a := join(t, r, "c1", owner)
	b := join(t, r, "c2", other)

	r.Inbox() <- FromClient{ClientID: "c2", Event: wire.StartGame{Name: "Homecoming"}}

	for _, ch := range []chan []byte{a, b} {
		f := recvFrame(t, ch, 100*time.Millisecond)
		assert.True(t, f.Success)
		assert.Equal(t, wire.StartGame{Name: "Homecoming"}, f.Event)
	}
	assert.True(t, recvView(t, r).Playing)
}

func TestRoom_RejectionGoesToSenderOnly(t *testing.T) {
	r := newRoom(t, nil)
	a := join(t, r, "c1", owner)
	b := join(t, r, "c2", other)

	r.Inbox() <- FromClient{ClientID: "c2", Event: wire.Photo{Play: goodPic, Photo: []byte{1}}}

	f := recvFrame(t, b, 100*time.Millisecond)
	assert.False(t, f.Success)
	assert.Equal(t, ErrNotCapturer.Error(), f.Error)
	assert.Equal(t, wire.Photo{Play: goodPic}, f.Event)
	recvNoFrame(t, a, 50*time.Millisecond)
}

func TestRoom_PersistsTeamChanges(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.CreateTeam(context.Background(), baseState().Team))
	require.NoError(t, st.UpsertUser(context.Background(), store.User{Email: "d@x.io", Name: "Dee"}))

	r := newRoom(t, st)
	a := join(t, r, "c1", owner)

	r.Inbox() <- FromClient{ClientID: "c1", Event: wire.AddMember{Email: "d@x.io"}}
	f := recvFrame(t, a, 100*time.Millisecond)
	assert.Equal(t, wire.AddMember{Name: "Dee", Email: "d@x.io"}, f.Event)

	saved, err := st.Team(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, saved.HasMember("d@x.io"))
}

func TestRoom_SaveFailureRejects(t *testing.T) {
	r := newRoom(t, store.NewMemory()) // team was never created, so saves fail
	a := join(t, r, "c1", owner)

	r.Inbox() <- FromClient{ClientID: "c1", Event: wire.RenameTeam{Name: "Other"}}
	f := recvFrame(t, a, 100*time.Millisecond)
	assert.False(t, f.Success)
	assert.Equal(t, "Varsity", recvView(t, r).Team.Name)
}

func TestRoom_LeaveClearsLiveFlags(t *testing.T) {
	r := newRoom(t, nil)
	a := join(t, r, "c1", owner)
	join(t, r, "c2", other)
	join(t, r, "c3", other)

	r.Inbox() <- FromClient{ClientID: "c2", Event: wire.StartViewing{}}
	recvFrame(t, a, 100*time.Millisecond)

	r.Inbox() <- Leave{ClientID: "c2"}
	recvNoFrame(t, a, 50*time.Millisecond) // c3 is still connected as the same member

	r.Inbox() <- Leave{ClientID: "c3"}
	f := recvFrame(t, a, 100*time.Millisecond)
	assert.Equal(t, wire.StopViewing{Emails: []string{other}}, f.Event)
	assert.Equal(t, 1, recvView(t, r).NumClients)
}

func TestRoom_DropSlowClient(t *testing.T) {
	r := newRoom(t, nil)
	slow := make(chan []byte, 1)
	r.Inbox() <- Join{ClientID: "c1", Email: owner, Outbox: slow}

	// the replay fills the buffer; the broadcast overflows it
	r.Inbox() <- FromClient{ClientID: "c1", Event: wire.StartGame{}}

	assert.Equal(t, 0, recvView(t, r).NumClients)
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	r := newRoom(t, nil)
	a := join(t, r, "c1", owner)

	r.Inbox() <- Shutdown{}
	select {
	case _, ok := <-a:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("outbox not closed")
	}
	<-r.Done()
	assert.False(t, r.Send(Leave{ClientID: "c1"}))
}
