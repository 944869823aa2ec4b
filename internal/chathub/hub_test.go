package chathub_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, store chathub.MessageStore, clients ...*MockClient) *chathub.Hub {
	t.Helper()
	hub := chathub.NewHub(chathub.NewRegistry(), store, 50)
	for _, c := range clients {
		require.NoError(t, hub.Registry.Register(c))
	}
	return hub
}

func openRoom(store *MockStorage, room string) {
	store.On("GetRoomByName", mock.Anything, room).Return(nil, nil)
}

func storedMessage(id uint, room string, sender models.User, content string) models.Message {
	return models.Message{
		ID:        id,
		Room:      room,
		SenderID:  sender.ID,
		Sender:    sender,
		Content:   content,
		FileType:  "none",
		CreatedAt: time.Date(2024, 1, 1, 12, 0, int(id), 0, time.UTC),
	}
}

func TestHub_JoinEmptyRoom(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	hub := newTestHub(t, store, a)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)

	require.NoError(t, hub.Join(context.Background(), a, "general"))

	events := a.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventLoadMessages, events[0].Event)
	assert.Empty(t, events[0].Data)
	assert.Empty(t, a.EventsNamed(models.EventUserJoined))
}

func TestHub_SecondJoinerGetsHistoryAndPresence(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	hub := newTestHub(t, store, a, b)

	alice := models.User{ID: "u1", Username: "alice", DisplayName: "Alice"}
	history := []models.Message{
		storedMessage(1, "general", alice, "first"),
		storedMessage(2, "general", alice, "second"),
	}

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil).Once()
	store.On("RecentByRoom", mock.Anything, "general", 50).Return(history, nil).Once()

	require.NoError(t, hub.Join(context.Background(), a, "general"))
	a.Reset()
	require.NoError(t, hub.Join(context.Background(), b, "general"))

	loaded := b.EventsNamed(models.EventLoadMessages)
	require.Len(t, loaded, 1)
	views := loaded[0].Data.([]models.MessageView)
	require.Len(t, views, 2)
	assert.Equal(t, "first", views[0].Content)
	assert.Equal(t, "second", views[1].Content)
	assert.Equal(t, "Alice", views[0].Sender.DisplayName)

	joined := a.EventsNamed(models.EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, models.UserJoinedPayload{DisplayName: "Bob", Text: "Bob joined the room"}, joined[0].Data)

	assert.Empty(t, b.EventsNamed(models.EventUserJoined))
	assert.Empty(t, a.EventsNamed(models.EventLoadMessages), "history goes to the joiner only")
}

func TestHub_RepeatedJoinReplaysWithoutAnnouncing(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	hub := newTestHub(t, store, a, b)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)

	require.NoError(t, hub.Join(context.Background(), a, "general"))
	require.NoError(t, hub.Join(context.Background(), b, "general"))
	a.Reset()

	require.NoError(t, hub.Join(context.Background(), b, "general"))

	assert.Len(t, b.EventsNamed(models.EventLoadMessages), 2)
	assert.Empty(t, a.EventsNamed(models.EventUserJoined))
	assert.Len(t, hub.Registry.Members("general"), 2)
}

func TestHub_SendBroadcastsToWholeRoom(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	outsider := newMockClient("s3", "u3", "Carol")
	hub := newTestHub(t, store, a, b, outsider)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)
	require.NoError(t, hub.Join(context.Background(), a, "general"))
	require.NoError(t, hub.Join(context.Background(), b, "general"))

	alice := models.User{ID: "u1", Username: "alice", DisplayName: "Alice", AvatarURL: "http://img/a.png"}
	saved := storedMessage(7, "general", alice, "hi")
	store.On("AppendMessage", mock.Anything, models.NewMessage{Room: "general", SenderID: "u1", Content: "hi"}).
		Return(&saved, nil).Once()

	view, err := hub.SendMessage(context.Background(), a, models.SendMessagePayload{Room: "general", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "none", view.FileType)
	assert.Equal(t, "http://img/a.png", view.Sender.AvatarURL)

	for _, c := range []*MockClient{a, b} {
		got := c.EventsNamed(models.EventReceiveMessage)
		require.Len(t, got, 1, c.GetSessionID())
		msg := got[0].Data.(models.MessageView)
		assert.Equal(t, uint(7), msg.ID)
		assert.Equal(t, "u1", msg.Sender.ID)
		assert.Equal(t, "Alice", msg.Sender.DisplayName)
	}
	assert.Empty(t, outsider.Events())
	store.AssertExpectations(t)
}

func TestHub_SendFallsBackToSessionIdentity(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	hub := newTestHub(t, store, a)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)
	require.NoError(t, hub.Join(context.Background(), a, "general"))

	saved := models.Message{ID: 1, Room: "general", SenderID: "u1", Content: "hi", FileType: "none"}
	store.On("AppendMessage", mock.Anything, mock.Anything).Return(&saved, nil)

	view, err := hub.SendMessage(context.Background(), a, models.SendMessagePayload{Room: "general", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", view.Sender.DisplayName)
}

func TestHub_SendFailures(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	hub := newTestHub(t, store, a, b)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)
	require.NoError(t, hub.Join(context.Background(), a, "general"))
	require.NoError(t, hub.Join(context.Background(), b, "general"))
	a.Reset()
	b.Reset()

	t.Run("validation", func(t *testing.T) {
		store.On("AppendMessage", mock.Anything, models.NewMessage{Room: "general", SenderID: "u1"}).
			Return(nil, fmt.Errorf("%w: content or file required", storage.ErrValidation)).Once()

		_, err := hub.SendMessage(context.Background(), a, models.SendMessagePayload{Room: "general"})
		assert.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("persist", func(t *testing.T) {
		store.On("AppendMessage", mock.Anything, models.NewMessage{Room: "general", SenderID: "u1", Content: "lost"}).
			Return(nil, errors.New("connection reset")).Once()

		_, err := hub.SendMessage(context.Background(), a, models.SendMessagePayload{Room: "general", Content: "lost"})
		assert.Error(t, err)
	})

	t.Run("not joined", func(t *testing.T) {
		_, err := hub.SendMessage(context.Background(), a, models.SendMessagePayload{Room: "random", Content: "hi"})
		assert.ErrorIs(t, err, chathub.ErrNotInRoom)
	})

	t.Run("blank room", func(t *testing.T) {
		_, err := hub.SendMessage(context.Background(), a, models.SendMessagePayload{Room: "  ", Content: "hi"})
		assert.ErrorIs(t, err, chathub.ErrInvalidRoom)
	})

	assert.Empty(t, a.EventsNamed(models.EventReceiveMessage))
	assert.Empty(t, b.Events(), "failures are never broadcast")
}

func TestHub_TypingExcludesSender(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	hub := newTestHub(t, store, a, b)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)
	require.NoError(t, hub.Join(context.Background(), a, "general"))
	require.NoError(t, hub.Join(context.Background(), b, "general"))

	require.NoError(t, hub.SetTyping(a, models.TypingPayload{Room: "general", IsTyping: true}))

	typing := b.EventsNamed(models.EventUserTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, models.UserTypingPayload{DisplayName: "Alice", IsTyping: true}, typing[0].Data)
	assert.Empty(t, a.EventsNamed(models.EventUserTyping))
	store.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
}

func TestHub_DisconnectLeavesAllRooms(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	hub := newTestHub(t, store, a, b)
	gateway := chathub.NewGateway(nil, hub)

	for _, room := range []string{"general", "random"} {
		openRoom(store, room)
		store.On("RecentByRoom", mock.Anything, room, 50).Return([]models.Message{}, nil)
		require.NoError(t, hub.Join(context.Background(), a, room))
		require.NoError(t, hub.Join(context.Background(), b, room))
	}

	gateway.Disconnect(a)
	gateway.Disconnect(a)
	assert.True(t, a.IsClosed())
	a.Reset()

	for _, room := range []string{"general", "random"} {
		assert.False(t, hub.Registry.IsMember("s1", room))
		require.NoError(t, hub.SetTyping(b, models.TypingPayload{Room: room, IsTyping: true}))
		hub.Registry.Broadcast(room, models.OutboundEvent{Event: "x"}, "")
	}
	assert.Empty(t, a.Events())
	assert.Equal(t, []models.Identity{{ID: "u2", DisplayName: "Bob"}}, hub.Members("general"))
}

func TestHub_RoomPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("private room rejects outsiders", func(t *testing.T) {
		store := new(MockStorage)
		a := newMockClient("s1", "u1", "Alice")
		hub := newTestHub(t, store, a)
		store.On("GetRoomByName", mock.Anything, "secret").
			Return(&models.Room{Name: "secret", Kind: "private", CreatorID: "u9"}, nil)

		err := hub.Join(ctx, a, "secret")
		assert.ErrorIs(t, err, chathub.ErrForbiddenRoom)
		assert.False(t, hub.Registry.IsMember("s1", "secret"))
		assert.Empty(t, a.Events())
	})

	t.Run("private room admits participants", func(t *testing.T) {
		store := new(MockStorage)
		a := newMockClient("s1", "u1", "Alice")
		hub := newTestHub(t, store, a)
		store.On("GetRoomByName", mock.Anything, "secret").
			Return(&models.Room{Name: "secret", Kind: "private", CreatorID: "u9", Participants: models.UserIDs{"u9", "u1"}}, nil)
		store.On("RecentByRoom", mock.Anything, "secret", 50).Return([]models.Message{}, nil)

		require.NoError(t, hub.Join(ctx, a, "secret"))
		store.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("public room records participant", func(t *testing.T) {
		store := new(MockStorage)
		a := newMockClient("s1", "u1", "Alice")
		hub := newTestHub(t, store, a)
		store.On("GetRoomByName", mock.Anything, "lobby").
			Return(&models.Room{Name: "lobby", Kind: "public", CreatorID: "u9"}, nil)
		store.On("AddParticipant", mock.Anything, "lobby", "u1").Return(nil).Once()
		store.On("RecentByRoom", mock.Anything, "lobby", 50).Return([]models.Message{}, nil)

		require.NoError(t, hub.Join(ctx, a, "lobby"))
		store.AssertExpectations(t)
	})

	t.Run("history failure is reported", func(t *testing.T) {
		store := new(MockStorage)
		a := newMockClient("s1", "u1", "Alice")
		hub := newTestHub(t, store, a)
		openRoom(store, "general")
		store.On("RecentByRoom", mock.Anything, "general", 50).Return(nil, errors.New("timeout"))

		assert.Error(t, hub.Join(ctx, a, "general"))
		assert.Empty(t, a.EventsNamed(models.EventLoadMessages))
		assert.False(t, hub.Registry.IsMember("s1", "general"))
	})
}

func TestHub_FailedJoinLeavesNoMembership(t *testing.T) {
	ctx := context.Background()
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	b := newMockClient("s2", "u2", "Bob")
	hub := newTestHub(t, store, a, b)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil).Once()
	store.On("RecentByRoom", mock.Anything, "general", 50).Return(nil, errors.New("timeout")).Once()
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil).Once()

	require.NoError(t, hub.Join(ctx, a, "general"))
	a.Reset()

	require.Error(t, hub.Join(ctx, b, "general"))
	assert.False(t, hub.Registry.IsMember("s2", "general"))

	require.NoError(t, hub.SetTyping(a, models.TypingPayload{Room: "general", IsTyping: true}))
	assert.Empty(t, b.EventsNamed(models.EventUserTyping), "a failed joiner receives no room traffic")

	// the retry is announced like a first join
	require.NoError(t, hub.Join(ctx, b, "general"))
	joined := a.EventsNamed(models.EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "Bob joined the room", joined[0].Data.(models.UserJoinedPayload).Text)
	store.AssertExpectations(t)
}

func TestHub_Dispatch(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	hub := newTestHub(t, store, a)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)

	hub.Dispatch(a, models.InboundEvent{Event: models.EventJoinRoom, Data: json.RawMessage(`"general"`)})
	assert.True(t, hub.Registry.IsMember("s1", "general"))
	assert.Len(t, a.EventsNamed(models.EventLoadMessages), 1)

	hub.Dispatch(a, models.InboundEvent{Event: "dance", Data: json.RawMessage(`{}`)})
	hub.Dispatch(a, models.InboundEvent{Event: models.EventTyping, Data: json.RawMessage(`"oops"`)})

	errs := a.EventsNamed(models.EventError)
	require.Len(t, errs, 2)
	assert.Equal(t, "dance", errs[0].Data.(models.ErrorPayload).Event)
	assert.Equal(t, models.EventTyping, errs[1].Data.(models.ErrorPayload).Event)

	hub.Dispatch(a, models.InboundEvent{Event: models.EventLeaveRoom, Data: json.RawMessage(`"general"`)})
	assert.False(t, hub.Registry.IsMember("s1", "general"))
}

func TestHub_DispatchHidesInternalErrors(t *testing.T) {
	store := new(MockStorage)
	a := newMockClient("s1", "u1", "Alice")
	hub := newTestHub(t, store, a)

	openRoom(store, "general")
	store.On("RecentByRoom", mock.Anything, "general", 50).Return([]models.Message{}, nil)
	store.On("AppendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("pq: password authentication failed"))
	require.NoError(t, hub.Join(context.Background(), a, "general"))

	hub.Dispatch(a, models.InboundEvent{Event: models.EventSendMessage, Data: json.RawMessage(`{"room":"general","content":"hi"}`)})

	errs := a.EventsNamed(models.EventError)
	require.Len(t, errs, 1)
	assert.NotContains(t, errs[0].Data.(models.ErrorPayload).Message, "pq:")
}

// sequenceStore hands out increasing ids and stalls a little so concurrent
// senders overlap.
type sequenceStore struct {
	mu   sync.Mutex
	next uint
}

func (s *sequenceStore) AppendMessage(_ context.Context, in models.NewMessage) (*models.Message, error) {
	s.mu.Lock()
	s.next++
	id := s.next
	s.mu.Unlock()
	time.Sleep(time.Millisecond)
	return &models.Message{ID: id, Room: in.Room, SenderID: in.SenderID, Content: in.Content, FileType: "none"}, nil
}

func (s *sequenceStore) RecentByRoom(context.Context, string, int) ([]models.Message, error) {
	return nil, nil
}

func (s *sequenceStore) GetRoomByName(context.Context, string) (*models.Room, error) {
	return nil, nil
}

func (s *sequenceStore) AddParticipant(context.Context, string, string) error { return nil }

func TestHub_BroadcastOrderMatchesPersistOrder(t *testing.T) {
	senders := []*MockClient{
		newMockClient("s1", "u1", "Alice"),
		newMockClient("s2", "u2", "Bob"),
		newMockClient("s3", "u3", "Carol"),
	}
	hub := newTestHub(t, &sequenceStore{}, senders...)
	for _, c := range senders {
		require.NoError(t, hub.Join(context.Background(), c, "general"))
		c.Reset()
	}

	var wg sync.WaitGroup
	for _, c := range senders {
		wg.Add(1)
		go func(c *MockClient) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := hub.SendMessage(context.Background(), c, models.SendMessagePayload{Room: "general", Content: "m"})
				assert.NoError(t, err)
			}
		}(c)
	}
	wg.Wait()

	for _, c := range senders {
		got := c.EventsNamed(models.EventReceiveMessage)
		require.Len(t, got, 30)
		for i, evt := range got {
			assert.Equal(t, uint(i+1), evt.Data.(models.MessageView).ID)
		}
	}
}
