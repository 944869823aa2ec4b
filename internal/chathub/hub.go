package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/samber/lo"
)

var (
	ErrInvalidRoom   = errors.New("invalid room name")
	ErrForbiddenRoom = errors.New("room is private")
	ErrNotInRoom     = errors.New("join the room first")
	ErrUnknownEvent  = errors.New("unknown event")
	ErrBadPayload    = errors.New("malformed payload")
)

const (
	maxRoomNameLength = 128
	storeTimeout      = 5 * time.Second
)

// MessageStore is the part of storage the Hub depends on.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
	RecentByRoom(ctx context.Context, room string, limit int) ([]models.Message, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	AddParticipant(ctx context.Context, roomName, userID string) error
}

type eventHandler func(ctx context.Context, c Client, data json.RawMessage) error

// Hub routes session events: joins with history replay, persisted
// messages, typing and leaves. Persist and broadcast for one room run
// under that room's lock so every member sees messages in storage order.
type Hub struct {
	Registry     *Registry
	Store        MessageStore
	HistoryLimit int

	locksMu   sync.Mutex
	roomLocks map[string]*sync.Mutex

	handlers map[string]eventHandler
}

func NewHub(registry *Registry, store MessageStore, historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = config.DefaultHistoryLimit
	}
	h := &Hub{
		Registry:     registry,
		Store:        store,
		HistoryLimit: historyLimit,
		roomLocks:    make(map[string]*sync.Mutex),
	}
	h.handlers = map[string]eventHandler{
		models.EventJoinRoom:    h.handleJoin,
		models.EventLeaveRoom:   h.handleLeave,
		models.EventSendMessage: h.handleSend,
		models.EventTyping:      h.handleTyping,
	}
	return h
}

func (h *Hub) roomLock(room string) *sync.Mutex {
	h.locksMu.Lock()
	defer h.locksMu.Unlock()

	mu, ok := h.roomLocks[room]
	if !ok {
		mu = &sync.Mutex{}
		h.roomLocks[room] = mu
	}
	return mu
}

// Dispatch runs the handler registered for evt. A failure is reported to
// the originating session only.
func (h *Hub) Dispatch(c Client, evt models.InboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	handler, ok := h.handlers[evt.Event]
	var err error
	if !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, evt.Event)
	} else {
		err = handler(ctx, c, evt.Data)
	}
	if err != nil {
		h.reportError(c, evt.Event, err)
	}
}

func (h *Hub) reportError(c Client, event string, err error) {
	log.Printf("WARNING: %s from session %s (%s) failed: %v", event, c.GetSessionID(), c.GetIdentity().ID, err)
	c.Deliver(models.OutboundEvent{
		Event: models.EventError,
		Data:  models.ErrorPayload{Event: event, Message: publicMessage(err)},
	})
}

// publicMessage hides store internals from clients.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrValidation),
		errors.Is(err, ErrInvalidRoom),
		errors.Is(err, ErrForbiddenRoom),
		errors.Is(err, ErrNotInRoom),
		errors.Is(err, ErrUnknownEvent),
		errors.Is(err, ErrBadPayload):
		return err.Error()
	default:
		return "internal error, try again later"
	}
}

func normalizeRoom(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" || len(room) > maxRoomNameLength {
		return "", ErrInvalidRoom
	}
	return room, nil
}

func (h *Hub) handleJoin(ctx context.Context, c Client, data json.RawMessage) error {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return h.Join(ctx, c, room)
}

func (h *Hub) handleLeave(_ context.Context, c Client, data json.RawMessage) error {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return h.Leave(c, room)
}

func (h *Hub) handleSend(ctx context.Context, c Client, data json.RawMessage) error {
	var payload models.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	_, err := h.SendMessage(ctx, c, payload)
	return err
}

func (h *Hub) handleTyping(_ context.Context, c Client, data json.RawMessage) error {
	var payload models.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return h.SetTyping(c, payload)
}

// Join adds c to room, replays recent history to c alone and announces c to
// the other members. A repeated join replays history again but is not
// announced twice.
func (h *Hub) Join(ctx context.Context, c Client, room string) error {
	room, err := normalizeRoom(room)
	if err != nil {
		return err
	}
	identity := c.GetIdentity()

	if err := h.authorize(ctx, identity, room); err != nil {
		return err
	}

	mu := h.roomLock(room)
	mu.Lock()
	defer mu.Unlock()

	// History first: a failed read must leave membership untouched.
	history, err := h.Store.RecentByRoom(ctx, room, h.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", room, err)
	}

	added, err := h.Registry.Join(c.GetSessionID(), room)
	if err != nil {
		return err
	}

	c.Deliver(models.OutboundEvent{
		Event: models.EventLoadMessages,
		Data:  lo.Map(history, func(m models.Message, _ int) models.MessageView { return m.View() }),
	})

	if added {
		h.Registry.Broadcast(room, models.OutboundEvent{
			Event: models.EventUserJoined,
			Data: models.UserJoinedPayload{
				DisplayName: identity.DisplayName,
				Text:        identity.DisplayName + " joined the room",
			},
		}, c.GetSessionID())
		log.Printf("INFO: %s (session %s) joined room %s", identity.DisplayName, c.GetSessionID(), room)
	}
	return nil
}

// authorize applies the catalog policy: unknown names are open, private
// rooms admit only their participants and public rooms record the joiner
// as a participant.
func (h *Hub) authorize(ctx context.Context, identity models.Identity, room string) error {
	catalog, err := h.Store.GetRoomByName(ctx, room)
	if err != nil {
		return fmt.Errorf("look up room %s: %w", room, err)
	}
	if catalog == nil || catalog.HasParticipant(identity.ID) {
		return nil
	}
	if catalog.Kind == config.RoomKindPrivate {
		return ErrForbiddenRoom
	}
	if err := h.Store.AddParticipant(ctx, room, identity.ID); err != nil {
		log.Printf("WARNING: could not add %s to participants of %s: %v", identity.ID, room, err)
	}
	return nil
}

// Leave removes c from room. Leaving a room c is not in is a no-op.
func (h *Hub) Leave(c Client, room string) error {
	room, err := normalizeRoom(room)
	if err != nil {
		return err
	}
	h.Registry.Leave(c.GetSessionID(), room)
	return nil
}

// SendMessage persists a message from c and broadcasts it to every member
// of the room, sender included. Nothing is broadcast if persisting fails.
func (h *Hub) SendMessage(ctx context.Context, c Client, payload models.SendMessagePayload) (*models.MessageView, error) {
	room, err := normalizeRoom(payload.Room)
	if err != nil {
		return nil, err
	}
	if !h.Registry.IsMember(c.GetSessionID(), room) {
		return nil, ErrNotInRoom
	}
	identity := c.GetIdentity()

	mu := h.roomLock(room)
	mu.Lock()
	defer mu.Unlock()

	msg, err := h.Store.AppendMessage(ctx, models.NewMessage{
		Room:     room,
		SenderID: identity.ID,
		Content:  payload.Content,
		FileURL:  payload.FileURL,
		FileType: payload.FileType,
	})
	if err != nil {
		return nil, fmt.Errorf("persist message in %s: %w", room, err)
	}

	view := msg.View()
	if msg.Sender.ID == "" {
		view.Sender = models.SenderView{ID: identity.ID, DisplayName: identity.DisplayName, AvatarURL: identity.AvatarURL}
	}

	h.Registry.Broadcast(room, models.OutboundEvent{Event: models.EventReceiveMessage, Data: view}, "")
	return &view, nil
}

// SetTyping relays a typing indicator to the room, excluding the sender.
func (h *Hub) SetTyping(c Client, payload models.TypingPayload) error {
	room, err := normalizeRoom(payload.Room)
	if err != nil {
		return err
	}
	if !h.Registry.IsMember(c.GetSessionID(), room) {
		return ErrNotInRoom
	}

	h.Registry.Broadcast(room, models.OutboundEvent{
		Event: models.EventUserTyping,
		Data: models.UserTypingPayload{
			DisplayName: c.GetIdentity().DisplayName,
			IsTyping:    payload.IsTyping,
		},
	}, c.GetSessionID())
	return nil
}

// Members returns the identities currently connected to room, one per user.
func (h *Hub) Members(room string) []models.Identity {
	identities := lo.Map(h.Registry.Members(room), func(c Client, _ int) models.Identity {
		return c.GetIdentity()
	})
	identities = lo.UniqBy(identities, func(i models.Identity) string { return i.ID })
	sort.Slice(identities, func(a, b int) bool { return identities[a].DisplayName < identities[b].DisplayName })
	return identities
}

// Shutdown closes every live session.
func (h *Hub) Shutdown() {
	log.Printf("INFO: closing %d live sessions", h.Registry.Count())
	h.Registry.CloseAll()
}
