// Package mail renders and delivers the service's outbound email. Delivery
// is behind the [Sender] interface; auth flows treat it as best-effort and
// never fail a parent operation on a send error alone.
package mail

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
