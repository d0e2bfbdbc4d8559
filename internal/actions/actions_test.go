package actions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/backsim/internal/messagebus"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/simerr"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

type failingSender struct{ err error }

func (s failingSender) SendMessage(messagebus.Message) error { return s.err }

func TestSendMessageWithoutBusIsUnsupported(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{"A"})
	ctx := New(router, nil)
	err := ctx.SendMessage(messagebus.SimpleMessage{TopicName: "t"})
	require.ErrorIs(t, err, simerr.ErrActionNotSupported)
}

func TestSendOrderRoutesToExchange(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{"A"})
	ctx := New(router, nil)
	require.NoError(t, ctx.SendOrder(gateway.NewOrderRequest{Exchange: "A", Symbol: "BTCUSDT"}))

	recv := router.Receivers()["A"]
	_, ok := recv.TryRecv()
	require.True(t, ok)
}

func TestSendMessageTripsBreakerAfterConsecutiveFailures(t *testing.T) {
	router := gateway.NewRouter([]simtype.Exchange{"A"})
	sender := failingSender{err: errors.New("bus unreachable")}
	ctx := New(router, sender)

	for i := 0; i < 5; i++ {
		err := ctx.SendMessage(messagebus.SimpleMessage{TopicName: "t"})
		require.Error(t, err)
	}

	// Breaker should now be open: the call fails immediately without
	// reaching the sender, with gobreaker's own error rather than ours.
	err := ctx.SendMessage(messagebus.SimpleMessage{TopicName: "t"})
	require.Error(t, err)
}
