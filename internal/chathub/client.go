package chathub

import "roomchat/backend/internal/models"

// Client is one live, authenticated connection.
// It abstracts the transport so the Hub and Registry can be driven by
// websockets in production and by in-memory fakes in tests.
type Client interface {
	// GetSessionID returns the unique id of this connection. One user may
	// hold several sessions at once.
	GetSessionID() string
	// GetIdentity returns the verified identity bound at admission.
	GetIdentity() models.Identity

	// Deliver queues evt for the client without blocking. It returns false
	// when the client is closed or too slow to keep up; a slow client is
	// closed as a side effect.
	Deliver(evt models.OutboundEvent) bool

	// Run starts the read and write pumps.
	Run()
	// Close stops the client. It is safe to call more than once.
	Close()
}
