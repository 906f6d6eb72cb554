// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sink defines a transport-agnostic message delivery interface.
package sink

import "context"

// Sender delivers messages to a configured destination.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a transport-agnostic outgoing message.
type Message struct {
	Text      string
	URL       string
	Thumbnail string
	Teaser    string
}
