package messagebus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// chanBusTopic is the single watermill topic the in-process bus
// publishes and subscribes on; fan-out by SimpleMessage.Topic happens
// above this layer, in Bus.
const chanBusTopic = "backsim.messages"

// GoChannelBus is the default, in-process message bus backend: a
// watermill gochannel pub/sub standing in for the reference's
// crossbeam unbounded channel. It implements both Sender and Provider.
type GoChannelBus struct {
	pubSub   *gochannel.GoChannel
	messages <-chan *message.Message
}

// NewGoChannelBus constructs an in-memory bus with the given output
// buffer size (0 is synchronous hand-off).
func NewGoChannelBus(bufferSize int, logger *zap.Logger) (*GoChannelBus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	wmLogger := watermill.NewStdLoggerWithOut(nopWriter{}, false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(bufferSize),
		Persistent:          false,
	}, wmLogger)

	messages, err := pubSub.Subscribe(context.Background(), chanBusTopic)
	if err != nil {
		return nil, err
	}

	return &GoChannelBus{pubSub: pubSub, messages: messages}, nil
}

// SendMessage publishes message onto the in-process topic.
func (b *GoChannelBus) SendMessage(message Message) error {
	simple, ok := message.(SimpleMessage)
	if !ok {
		simple = SimpleMessage{TopicName: message.Topic(), Stop: message.IsStopMessage()}
	}
	payload, err := json.Marshal(simple)
	if err != nil {
		return err
	}
	return b.pubSub.Publish(chanBusTopic, wmMessage(payload))
}

// NextMessage blocks until a message arrives. A stop message is
// consumed and reported as exhaustion (ok=false), ending Bus.Run.
func (b *GoChannelBus) NextMessage() (Message, bool) {
	wmMsg, ok := <-b.messages
	if !ok {
		return nil, false
	}
	wmMsg.Ack()

	var decoded SimpleMessage
	if err := json.Unmarshal(wmMsg.Payload, &decoded); err != nil {
		return nil, false
	}
	if decoded.Stop {
		return nil, false
	}
	return decoded, true
}

// Close shuts down the underlying gochannel pub/sub.
func (b *GoChannelBus) Close() error { return b.pubSub.Close() }

func wmMessage(payload []byte) *message.Message {
	return message.NewMessage(uuid.New().String(), payload)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
