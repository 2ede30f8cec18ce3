package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriber follows a daemon's event stream and reconnects with backoff.
type Subscriber struct {
	baseURL string
	token   string
	logger  *slog.Logger
}

func NewSubscriber(baseURL, token string, logger *slog.Logger) *Subscriber {
	return &Subscriber{baseURL: strings.TrimSuffix(baseURL, "/"), token: token, logger: logger}
}

// Run delivers events to onEvent until ctx ends.
func (s *Subscriber) Run(ctx context.Context, onEvent func(Event)) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.runSession(ctx, onEvent, func() { backoff = time.Second })
		if err != nil && ctx.Err() == nil && s.logger != nil {
			s.logger.Warn("event stream disconnected", "err", err, "retry_in", backoff.String())
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 20*time.Second {
			backoff *= 2
		}
	}
}

func (s *Subscriber) runSession(ctx context.Context, onEvent func(Event), onConnected func()) error {
	wsURL, err := toWebsocketURL(s.baseURL + "/api/events")
	if err != nil {
		return err
	}
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	onConnected()

	conn.SetPingHandler(func(data string) error {
		if err := conn.SetReadDeadline(time.Now().Add(2 * pingInterval)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(2 * pingInterval)); err != nil {
			return err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			if s.logger != nil {
				s.logger.Debug("skipping undecodable event", "err", err)
			}
			continue
		}
		onEvent(event)
	}
}

func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}
