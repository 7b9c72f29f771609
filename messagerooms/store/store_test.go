package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
)

func TestNewStoreIsEmpty(t *testing.T) {
	s := New()
	assert.Equal(t, AppState{}, s.Snapshot())
	assert.False(t, s.IsAuthenticated())
	_, ok := s.SelectedRoom()
	assert.False(t, ok)
}

func TestAuthenticateThenLogout(t *testing.T) {
	s := New()
	s.Authenticate(model.User{ID: "7", Nickname: "alice"}, "tok")
	require.True(t, s.IsAuthenticated())
	assert.Equal(t, "alice", s.Auth().User.Nickname)
	assert.Equal(t, "tok", s.Auth().AccessToken)

	s.Logout()
	assert.Equal(t, AuthState{}, s.Auth())
	assert.False(t, s.IsAuthenticated())
}

func TestAuthenticateWithEmptyTokenClearsAuth(t *testing.T) {
	s := New()
	s.Authenticate(model.User{ID: "7"}, "tok")
	s.Authenticate(model.User{ID: "8"}, "")
	assert.Equal(t, AuthState{}, s.Auth())
}

func TestAuthReturnsCopy(t *testing.T) {
	s := New()
	s.Authenticate(model.User{ID: "7", Nickname: "alice"}, "tok")
	a := s.Auth()
	a.User.Nickname = "mallory"
	assert.Equal(t, "alice", s.Auth().User.Nickname)
}

func TestRoomMutations(t *testing.T) {
	s := New()
	s.StoreRooms([]model.Room{{ID: "r1"}, {ID: "r2"}})
	s.AppendRoom(model.Room{ID: "r3"})

	rooms := s.Rooms()
	require.Len(t, rooms, 3)
	assert.Equal(t, model.ID("r3"), rooms[2].ID)

	s.StoreRooms([]model.Room{{ID: "r9"}})
	assert.Equal(t, []model.Room{{ID: "r9"}}, s.Rooms())
}

func TestSelectRoomDoesNotValidate(t *testing.T) {
	s := New()
	s.SelectRoom("missing")
	id, ok := s.SelectedRoom()
	assert.True(t, ok)
	assert.Equal(t, "missing", id)
}

func TestStoreRoomDetails(t *testing.T) {
	s := New()
	d := model.RoomDetail{Room: model.Room{ID: "r1", RoomName: "general"}, IsMember: true}
	s.StoreRoomDetails(d)
	assert.Equal(t, d, s.RoomDetails())
}

func TestStoreMessagesIsIdempotent(t *testing.T) {
	msgs := []model.Message{{ID: "1", MessageText: "a"}, {ID: "2", MessageText: "b"}}

	once := New()
	once.StoreMessages(msgs)

	twice := New()
	twice.StoreMessages(msgs)
	twice.StoreMessages(msgs)

	assert.Equal(t, once.Messages(), twice.Messages())
}

func TestAppendMessagePreservesOrder(t *testing.T) {
	s := New()
	s.StoreMessages([]model.Message{{ID: "1"}})
	s.AppendMessage(model.Message{ID: "2"})
	s.AppendMessage(model.Message{ID: "3"})

	var ids []model.ID
	for _, m := range s.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []model.ID{"1", "2", "3"}, ids)
}

func TestStoreMessagesCopiesInput(t *testing.T) {
	s := New()
	in := []model.Message{{ID: "1"}}
	s.StoreMessages(in)
	in[0].ID = "changed"
	assert.Equal(t, model.ID("1"), s.Messages()[0].ID)
}

func messageIDs(msgs []model.Message) []model.ID {
	var ids []model.ID
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestUpdateMessagesKeepsConcurrentAppend(t *testing.T) {
	s := New()
	s.SelectRoom("r1")
	s.AppendMessage(model.Message{ID: "3"})

	appended := make(chan struct{})
	ok := s.UpdateMessages("r1", func(current []model.Message) []model.Message {
		assert.Equal(t, []model.ID{"3"}, messageIDs(current))
		go func() {
			s.AppendMessage(model.Message{ID: "4"})
			close(appended)
		}()
		// Give the append a chance to run; it has to wait for the lock.
		time.Sleep(20 * time.Millisecond)
		return append([]model.Message{{ID: "1"}, {ID: "2"}}, current...)
	})
	require.True(t, ok)
	<-appended

	assert.Equal(t, []model.ID{"1", "2", "3", "4"}, messageIDs(s.Messages()))
}

func TestUpdateMessagesOtherRoom(t *testing.T) {
	s := New()
	s.SelectRoom("r2")
	s.AppendMessage(model.Message{ID: "9"})
	var changes int
	s.Subscribe(func(Change) { changes++ })

	ok := s.UpdateMessages("r1", func([]model.Message) []model.Message {
		t.Fatal("fn called for a room that is not selected")
		return nil
	})
	assert.False(t, ok)
	assert.Zero(t, changes)
	assert.Equal(t, []model.ID{"9"}, messageIDs(s.Messages()))
}

func TestSubscribeReceivesOneChangePerMutation(t *testing.T) {
	s := New()
	var got []Mutation
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c.Mutation) })

	s.Authenticate(model.User{ID: "1"}, "t")
	s.StoreEventsourceConnection("abc")
	s.StoreRooms(nil)
	s.AppendRoom(model.Room{ID: "r1"})
	s.SelectRoom("r1")
	s.StoreRoomDetails(model.RoomDetail{})
	s.StoreMessages(nil)
	s.AppendMessage(model.Message{ID: "1"})
	s.Logout()

	assert.Equal(t, []Mutation{
		MutationAuthenticate,
		MutationStoreConnection,
		MutationStoreRooms,
		MutationAppendRoom,
		MutationSelectRoom,
		MutationStoreRoomDetails,
		MutationStoreMessages,
		MutationAppendMessage,
		MutationLogout,
	}, got)

	unsubscribe()
	unsubscribe()
	s.SelectRoom("r2")
	assert.Len(t, got, 9)
}

func TestListenerCanReadStore(t *testing.T) {
	s := New()
	var seen string
	s.Subscribe(func(Change) { seen = s.ConnectionID() })
	s.StoreEventsourceConnection("abc123")
	assert.Equal(t, "abc123", seen)
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	s := New()
	calls := 0
	s.Subscribe(func(Change) { panic("boom") })
	s.Subscribe(func(Change) { calls++ })

	s.SelectRoom("r1")
	s.SelectRoom("r2")
	assert.Equal(t, 2, calls)
}

func TestWatch(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Watch(ctx, 4)

	s.SelectRoom("r1")
	select {
	case c := <-ch:
		assert.Equal(t, MutationSelectRoom, c.Mutation)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}
