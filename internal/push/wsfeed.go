package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/models"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultReconnectInterval = 2 * time.Second
)

// envelopeSchema validates the wire shape of push gateway frames before
// they are decoded and republished on the bus.
const envelopeSchema = `{
	"type": "object",
	"required": ["topic", "change", "record"],
	"properties": {
		"topic": {"type": "string", "enum": ["messages", "conversations", "notifications"]},
		"change": {"type": "string", "enum": ["insert", "update"]},
		"record": {"type": "object"}
	}
}`

// envelope is the decoded wire frame.
type envelope struct {
	Topic  Topic           `json:"topic"`
	Change ChangeType      `json:"change"`
	Record json.RawMessage `json:"record"`
}

// FeedConfig configures a websocket Feed.
type FeedConfig struct {
	// URL is the push gateway websocket endpoint (ws:// or wss://).
	URL string

	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration

	// ReconnectInterval is how long to wait after a dropped connection
	// before dialing again.
	ReconnectInterval time.Duration
}

// Feed bridges a remote push gateway into a Bus. It validates every
// inbound frame against the envelope schema, decodes it into an Event and
// publishes it. A dropped connection is redialed after ReconnectInterval;
// the feed itself never replays missed events, dependent components
// compensate with silent refreshes.
type Feed struct {
	cfg    FeedConfig
	bus    *Bus
	schema *jsonschema.Schema
	logger zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeed creates a feed publishing into bus.
func NewFeed(bus *Bus, cfg FeedConfig) (*Feed, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("push gateway url is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}

	schema, err := compileEnvelopeSchema()
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}

	return &Feed{
		cfg:    cfg,
		bus:    bus,
		schema: schema,
		logger: logging.Component("push-feed"),
	}, nil
}

func compileEnvelopeSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("envelope.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("envelope.json")
}

// Start begins the read loop. The feed runs until ctx is cancelled or
// Close is called.
func (f *Feed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.runLoop(ctx)
}

// Close stops the feed and waits for the read loop to exit.
func (f *Feed) Close() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

func (f *Feed) runLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := f.readConnection(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn().Err(err).
				Str("url", logging.RedactURL(f.cfg.URL)).
				Dur("retry_in", f.cfg.ReconnectInterval).
				Msg("push feed connection lost")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.ReconnectInterval):
		}
	}
}

// readConnection dials the gateway and pumps frames until the connection
// drops or ctx is cancelled.
func (f *Feed) readConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, f.cfg.DialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.cfg.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial push gateway: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	f.logger.Debug().Str("url", logging.RedactURL(f.cfg.URL)).Msg("push feed connected")

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := f.decodeFrame(frame)
		if err != nil {
			// A malformed frame is logged and skipped; it must not take
			// the whole feed down.
			f.logger.Warn().Err(err).Msg("discarding invalid push frame")
			continue
		}

		f.bus.Publish(ev)
	}
}

// decodeFrame validates and decodes one wire frame into an Event.
func (f *Feed) decodeFrame(frame []byte) (Event, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(frame))
	if err != nil {
		return Event{}, fmt.Errorf("invalid frame json: %w", err)
	}
	if err := f.schema.Validate(inst); err != nil {
		return Event{}, fmt.Errorf("frame failed schema validation: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	ev := Event{Topic: env.Topic, Change: env.Change}

	switch env.Topic {
	case TopicMessages:
		var msg models.Message
		if err := json.Unmarshal(env.Record, &msg); err != nil {
			return Event{}, fmt.Errorf("decode message record: %w", err)
		}
		ev.Message = &msg
	case TopicConversations:
		var conv models.Conversation
		if err := json.Unmarshal(env.Record, &conv); err != nil {
			return Event{}, fmt.Errorf("decode conversation record: %w", err)
		}
		ev.Conversation = &conv
	case TopicNotifications:
		var note models.Notification
		if err := json.Unmarshal(env.Record, &note); err != nil {
			return Event{}, fmt.Errorf("decode notification record: %w", err)
		}
		ev.Notification = &note
	default:
		return Event{}, fmt.Errorf("unknown topic %q", env.Topic)
	}

	return ev, nil
}
