package messagebus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the NATS-backed message bus, the production
// alternative to the default in-process GoChannelBus.
type NATSConfig struct {
	URL     string
	Subject string
}

// NATSBus is a Sender/Provider pair backed by a real NATS connection.
// Unlike GoChannelBus it survives the engine process restarting, at the
// cost of requiring a running broker.
type NATSBus struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	logger  *zap.Logger
	ch      chan *nats.Msg
}

// NewNATSBus connects to cfg.URL and subscribes to cfg.Subject.
func NewNATSBus(cfg NATSConfig, logger *zap.Logger) (*NATSBus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("backsim"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	ch := make(chan *nats.Msg, 256)
	sub, err := conn.ChanSubscribe(cfg.Subject, ch)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", cfg.Subject, err)
	}

	return &NATSBus{conn: conn, sub: sub, subject: cfg.Subject, logger: logger, ch: ch}, nil
}

// SendMessage publishes message to the bus's subject.
func (b *NATSBus) SendMessage(message Message) error {
	simple, ok := message.(SimpleMessage)
	if !ok {
		simple = SimpleMessage{TopicName: message.Topic(), Stop: message.IsStopMessage()}
	}
	payload, err := json.Marshal(simple)
	if err != nil {
		return err
	}
	return b.conn.Publish(b.subject, payload)
}

// NextMessage blocks on the subscription channel, decoding each payload
// back into a SimpleMessage. A stop message is consumed and reported as
// exhaustion, ending Bus.Run.
func (b *NATSBus) NextMessage() (Message, bool) {
	msg, ok := <-b.ch
	if !ok {
		return nil, false
	}

	var decoded SimpleMessage
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		b.logger.Error("failed to decode message bus payload", zap.Error(err))
		return nil, false
	}
	if decoded.Stop {
		return nil, false
	}
	return decoded, true
}

// Close drains the subscription and closes the connection.
func (b *NATSBus) Close() error {
	if err := b.sub.Drain(); err != nil {
		b.logger.Error("failed to drain nats subscription", zap.Error(err))
	}
	b.conn.Close()
	return nil
}
