package chathub

import (
	"context"
	"log"

	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/models"
)

// Gateway admits authenticated connections into the Hub and cleans up after
// them when they go away.
type Gateway struct {
	Verifier auth.Verifier
	Hub      *Hub
}

func NewGateway(verifier auth.Verifier, hub *Hub) *Gateway {
	return &Gateway{Verifier: verifier, Hub: hub}
}

// Authenticate verifies token before any transport is set up.
func (g *Gateway) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	return g.Verifier.Verify(ctx, token)
}

// Attach registers an admitted client and starts it.
func (g *Gateway) Attach(c Client) error {
	if err := g.Hub.Registry.Register(c); err != nil {
		return err
	}
	identity := c.GetIdentity()
	log.Printf("INFO: session %s connected for %s (%s)", c.GetSessionID(), identity.DisplayName, identity.ID)
	c.Run()
	return nil
}

// Disconnect drops every room membership of c. Only the first call for a
// session has any effect.
func (g *Gateway) Disconnect(c Client) {
	rooms, ok := g.Hub.Registry.Unregister(c.GetSessionID())
	if !ok {
		return
	}
	c.Close()
	log.Printf("INFO: session %s disconnected, left rooms %v", c.GetSessionID(), rooms)
}
