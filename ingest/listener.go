package ingest

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Listener consumes webhook frames from a chat bridge over a websocket
// and feeds them to the pipeline. It reconnects with exponential backoff
// until its context is cancelled.
type Listener struct {
	url      string
	pipeline *Pipeline
	dialer   *websocket.Dialer
}

// NewListener creates a listener for the given websocket URL.
func NewListener(url string, pipeline *Pipeline) *Listener {
	return &Listener{
		url:      url,
		pipeline: pipeline,
		dialer:   websocket.DefaultDialer,
	}
}

// Listen blocks, consuming frames until ctx is cancelled. Frame-level
// failures are logged and skipped; only ctx cancellation returns.
func (l *Listener) Listen(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err != nil {
			log.Printf("[LISTEN] Dial %s failed: %v (retrying in %s)", l.url, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		log.Printf("[LISTEN] Connected to %s", l.url)
		backoff = initialBackoff
		l.consume(ctx, conn)
	}
}

// consume reads frames until the connection drops or ctx is cancelled.
func (l *Listener) consume(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[LISTEN] Connection closed: %v", err)
			conn.Close()
			return
		}

		summary, err := l.pipeline.HandleFrame(ctx, data)
		if err != nil {
			log.Printf("[LISTEN] Frame processing failed: %v", err)
			continue
		}
		if summary.Action != nil && summary.Action.Pending != nil {
			log.Printf("[LISTEN] Proposal awaiting confirmation: %s", summary.Action.Pending.Summary)
		}
	}
}
