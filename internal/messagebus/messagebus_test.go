package messagebus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

type recordingHandler struct {
	topics   []Topic
	received []Message
}

func (h *recordingHandler) OnMessage(message Message, _ *gateway.Router) {
	h.received = append(h.received, message)
}
func (h *recordingHandler) Topics() []Topic { return h.topics }

type sliceMessageProvider struct {
	messages []Message
	idx      int
}

func (p *sliceMessageProvider) NextMessage() (Message, bool) {
	if p.idx >= len(p.messages) {
		return nil, false
	}
	m := p.messages[p.idx]
	p.idx++
	return m, true
}

func TestBusDispatchesByTopicAndAgnostic(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{"A"})
	agnostic := &recordingHandler{}
	scoped := &recordingHandler{topics: []Topic{"fills"}}

	provider := &sliceMessageProvider{messages: []Message{
		SimpleMessage{TopicName: "fills"},
		SimpleMessage{TopicName: "quotes"},
		StopMessage(),
	}}

	bus := New(provider, []Handler{agnostic, scoped}, router)
	bus.Run()

	require.Len(t, agnostic.received, 2)
	require.Len(t, scoped.received, 1)
	require.Equal(t, Topic("fills"), scoped.received[0].Topic())
}

func TestBusStopsOnExhaustedProvider(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{"A"})
	h := &recordingHandler{}
	bus := New(&sliceMessageProvider{}, []Handler{h}, router)
	bus.Run()
	require.Empty(t, h.received)
}
