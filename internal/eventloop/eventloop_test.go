package eventloop

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/actions"
	"github.com/abdoElHodaky/backsim/pkg/events"
	"github.com/abdoElHodaky/backsim/pkg/gateway"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

type sliceEventProvider struct {
	events []events.Event
	idx    int
}

func (p *sliceEventProvider) NextEvent() (events.Event, bool) {
	if p.idx >= len(p.events) {
		return events.Event{}, false
	}
	ev := p.events[p.idx]
	p.idx++
	return ev, true
}

type countingActor struct{ seen int }

func (a *countingActor) OnEvent(events.Event, *actions.Context) { a.seen++ }

type panickingActor struct{ calls int }

func (a *panickingActor) OnEvent(events.Event, *actions.Context) {
	a.calls++
	panic("boom")
}

func newTestActionsContext() *actions.Context {
	router := gateway.NewRouter([]simtype.Exchange{"A"})
	return actions.New(router, nil)
}

func TestLoopDispatchesEveryEventToEveryActor(t *testing.T) {
	provider := &sliceEventProvider{events: []events.Event{{}, {}, {}}}
	a1, a2 := &countingActor{}, &countingActor{}
	loop := New(provider, []Actor{a1, a2}, newTestActionsContext(), zap.NewNop())
	loop.Run()

	require.Equal(t, 3, a1.seen)
	require.Equal(t, 3, a2.seen)
}

func TestLoopRecoversFromActorPanic(t *testing.T) {
	provider := &sliceEventProvider{events: []events.Event{{}, {}}}
	bad := &panickingActor{}
	good := &countingActor{}
	loop := New(provider, []Actor{bad, good}, newTestActionsContext(), zap.NewNop())
	loop.Run()

	require.Equal(t, 2, bad.calls)
	require.Equal(t, 2, good.seen)
}
