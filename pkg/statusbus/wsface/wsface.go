// Package wsface implements statusbus.Publisher over a WebSocket connection
// to a face display server (the browser-rendered face used on robots without
// a hardware LED matrix). Updates are JSON objects of the form
// {"topic": "...", "payload": "..."}.
package wsface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/wrenrobotics/wren/pkg/statusbus"
)

// Compile-time assertion that Publisher satisfies statusbus.Publisher.
var _ statusbus.Publisher = (*Publisher)(nil)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 2 * time.Second
)

type update struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Publisher sends status updates as JSON text frames.
type Publisher struct {
	conn *websocket.Conn

	// Writes are serialised; the websocket library allows only one
	// concurrent writer.
	mu sync.Mutex
}

// Dial connects to the face server at wsURL (e.g., "ws://localhost:8765/status").
func Dial(ctx context.Context, wsURL string) (*Publisher, error) {
	if wsURL == "" {
		return nil, fmt.Errorf("wsface: wsURL must not be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("wsface: dial %s: %w", wsURL, err)
	}
	return &Publisher{conn: conn}, nil
}

// Publish implements statusbus.Publisher. Write failures are logged, never
// returned.
func (p *Publisher) Publish(topic, payload string) {
	data, err := json.Marshal(update{Topic: topic, Payload: payload})
	if err != nil {
		slog.Warn("wsface marshal failed", "topic", topic, "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.conn.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Warn("wsface write failed", "topic", topic, "error", err)
	}
}

// Close performs a clean WebSocket close handshake.
func (p *Publisher) Close() error {
	return p.conn.Close(websocket.StatusNormalClosure, "")
}
