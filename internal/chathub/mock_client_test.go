package chathub_test

import (
	"sync"

	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/models"
)

type MockClient struct {
	sessionID string
	identity  models.Identity

	mu       sync.Mutex
	received []models.OutboundEvent
	closed   bool
	capacity int
}

func newMockClient(sessionID, userID, displayName string) *MockClient {
	return &MockClient{
		sessionID: sessionID,
		identity:  models.Identity{ID: userID, DisplayName: displayName},
		capacity:  -1,
	}
}

var _ chathub.Client = (*MockClient)(nil)

func (c *MockClient) GetSessionID() string         { return c.sessionID }
func (c *MockClient) GetIdentity() models.Identity { return c.identity }

func (c *MockClient) Deliver(evt models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.capacity >= 0 && len(c.received) >= c.capacity {
		c.closed = true
		return false
	}
	c.received = append(c.received, evt)
	return true
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockClient) Events() []models.OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.OutboundEvent(nil), c.received...)
}

func (c *MockClient) EventsNamed(name string) []models.OutboundEvent {
	var out []models.OutboundEvent
	for _, evt := range c.Events() {
		if evt.Event == name {
			out = append(out, evt)
		}
	}
	return out
}

func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = nil
}
