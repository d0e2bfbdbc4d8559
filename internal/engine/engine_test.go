package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/marketdata"
)

type emptyMDProvider struct{}

func (emptyMDProvider) NextEvent() (marketdata.Event, bool) { return marketdata.Event{}, false }

// gatedMDProvider stays non-exhausted until told otherwise, letting a test
// control exactly when the event loop (and the automatic stop message it
// sends through the bus on exit) fires.
type gatedMDProvider struct{ release chan struct{} }

func (p *gatedMDProvider) NextEvent() (marketdata.Event, bool) {
	<-p.release
	return marketdata.Event{}, false
}

type recordingActor struct{ seen int }

func (a *recordingActor) OnEvent(events.Event, *actions.Context) { a.seen++ }

func TestExecuteWithSimEnvironmentRequiresExchange(t *testing.T) {
	e, err := New(zap.NewNop())
	require.NoError(t, err)
	defer e.Release()

	_, err = e.ExecuteWithSimEnvironment(emptyMDProvider{}, 0, nil, nil)
	require.Error(t, err)
}

func TestExecuteWithSimEnvironmentRunsEventLoopToCompletion(t *testing.T) {
	e, err := New(zap.NewNop())
	require.NoError(t, err)
	defer e.Release()

	e.AddExchange("BINANCE")
	actor := &recordingActor{}
	e.AddActor(actor)

	info, err := e.ExecuteWithSimEnvironment(emptyMDProvider{}, 0, nil, nil)
	require.NoError(t, err)
	info.Wait()
}

func TestExecuteWithSimEnvironmentRejectsIncompleteMessaging(t *testing.T) {
	e, err := New(zap.NewNop())
	require.NoError(t, err)
	defer e.Release()

	e.AddExchange("BINANCE")

	_, err = e.ExecuteWithSimEnvironment(emptyMDProvider{}, 0, nil, &Messaging{})
	require.Error(t, err)
}

func TestExecuteWithSimEnvironmentRunsMessageBusAlongsideEventLoop(t *testing.T) {
	e, err := New(zap.NewNop())
	require.NoError(t, err)
	defer e.Release()

	e.AddExchange("BINANCE")

	bus, err := messagebus.NewGoChannelBus(4, zap.NewNop())
	require.NoError(t, err)
	defer bus.Close()

	handler := &capturingHandler{}
	e.AddMessageHandler(handler)

	mdProvider := &gatedMDProvider{release: make(chan struct{})}
	info, err := e.ExecuteWithSimEnvironment(mdProvider, 0, nil, &Messaging{
		Provider: bus,
		Sender:   bus,
	})
	require.NoError(t, err)

	require.NoError(t, bus.SendMessage(messagebus.SimpleMessage{TopicName: "fills"}))

	// Letting the provider exhaust now exercises the engine's own
	// termination path: the event loop should send the bus its stop
	// message once it returns, with no test code doing it by hand.
	close(mdProvider.release)

	info.Wait()
	require.Len(t, handler.received, 1)
}

type capturingHandler struct{ received []messagebus.Message }

func (h *capturingHandler) OnMessage(message messagebus.Message, _ *gateway.Router) {
	h.received = append(h.received, message)
}
func (h *capturingHandler) Topics() []messagebus.Topic { return nil }
