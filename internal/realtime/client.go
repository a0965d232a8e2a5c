package realtime

import "questfeed/backend/internal/models"

// Client is the interface for one authenticated connection. It abstracts the
// transport so the hub can manage websocket clients and test doubles
// uniformly.
type Client interface {
	// GetConnID returns the opaque per-connection identifier.
	GetConnID() string
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetUsername returns the authenticated display name.
	GetUsername() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.Envelope

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the outbound channel down. Called by the hub exactly once,
	// during unregister.
	Close()
}
