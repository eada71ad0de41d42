package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WebsocketStream implements Stream over a Phoenix-channel realtime endpoint
// (the protocol spoken by hosted Postgres platforms: one channel join
// configured with postgres_changes filters, heartbeats on the "phoenix"
// topic, row change events multiplexed back).
type WebsocketStream struct {
	baseURL   string
	apiKey    string
	dbSchema  string
	heartbeat time.Duration
	logger    *slog.Logger
}

var _ Stream = (*WebsocketStream)(nil)

// NewWebsocketStream creates a stream against the given project base URL
// (https://... is rewritten to wss://...). A nil logger falls back to
// slog.Default.
func NewWebsocketStream(baseURL, apiKey string, logger *slog.Logger) *WebsocketStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebsocketStream{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		dbSchema:  "public",
		heartbeat: 30 * time.Second,
		logger:    logger,
	}
}

// phxMessage is the Phoenix channel protocol envelope (v1 object format).
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changePayload is the postgres_changes event body.
type changePayload struct {
	Data struct {
		Type      EventType      `json:"type"`
		Table     string         `json:"table"`
		Schema    string         `json:"schema"`
		Record    map[string]any `json:"record"`
		OldRecord map[string]any `json:"old_record"`
	} `json:"data"`
}

// Subscribe implements Stream: dial, join one channel watching all requested
// tables, then pump change events until stop is called or the connection
// drops. The returned channel closes on teardown either way.
func (s *WebsocketStream) Subscribe(ctx context.Context, tables []string) (<-chan Event, func(), error) {
	wsURL := s.websocketURL()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial realtime endpoint: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	if err := s.join(runCtx, conn, tables); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "join failed")
		return nil, nil, err
	}

	events := make(chan Event, 8)

	// Heartbeats keep the channel alive; the server drops silent clients.
	go func() {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		ref := 1
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
			ref++
			msg := phxMessage{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Payload: json.RawMessage(`{}`),
				Ref:     strconv.Itoa(ref),
			}
			if err := wsjson.Write(runCtx, conn, msg); err != nil {
				s.logger.Warn("realtime heartbeat failed", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(events)
		for {
			var msg phxMessage
			if err := wsjson.Read(runCtx, conn, &msg); err != nil {
				if runCtx.Err() == nil {
					s.logger.Warn("realtime connection lost", "error", err)
				}
				return
			}
			if msg.Event != "postgres_changes" {
				continue
			}
			var payload changePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				s.logger.Warn("failed to decode change event", "error", err)
				continue
			}
			ev := Event{
				Table: payload.Data.Table,
				Type:  payload.Data.Type,
				New:   payload.Data.Record,
				Old:   payload.Data.OldRecord,
			}
			select {
			case events <- ev:
			case <-runCtx.Done():
				return
			}
		}
	}()

	stop := func() {
		cancel()
		conn.Close(websocket.StatusNormalClosure, "unsubscribe")
	}
	return events, stop, nil
}

// join sends the channel join configured with one postgres_changes filter
// per table.
func (s *WebsocketStream) join(ctx context.Context, conn *websocket.Conn, tables []string) error {
	type changeFilter struct {
		Event  string `json:"event"`
		Schema string `json:"schema"`
		Table  string `json:"table"`
	}
	filters := make([]changeFilter, 0, len(tables))
	for _, t := range tables {
		filters = append(filters, changeFilter{Event: "*", Schema: s.dbSchema, Table: t})
	}
	payload, err := json.Marshal(map[string]any{
		"config": map[string]any{
			"postgres_changes": filters,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode join payload: %w", err)
	}
	msg := phxMessage{
		Topic:   "realtime:spliteasy",
		Event:   "phx_join",
		Payload: payload,
		Ref:     "1",
	}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		return fmt.Errorf("failed to join realtime channel: %w", err)
	}
	return nil
}

func (s *WebsocketStream) websocketURL() string {
	u := s.baseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/realtime/v1/websocket?apikey=" + s.apiKey + "&vsn=1.0.0"
}
