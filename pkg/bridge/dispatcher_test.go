// ABOUTME: Tests for the command dispatcher worker
// ABOUTME: Covers ordering, panic recovery, observers, and queue overflow
package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/broker/brokertest"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *brokertest.Broker) {
	t.Helper()
	fb := brokertest.NewBroker()
	transport := fb.Client()
	require.NoError(t, transport.Connect(context.Background()))
	topics := broker.NewTopics("", "dev1")
	return NewDispatcher(transport, topics, 1, zerolog.Nop()), fb
}

func enqueueCommand(t *testing.T, d *Dispatcher, name string) broker.Command {
	t.Helper()
	cmd, err := broker.NewCommand(name, nil)
	require.NoError(t, err)
	payload, err := broker.Encode(cmd)
	require.NoError(t, err)
	d.HandleMessage(payload)
	return cmd
}

func responsesOn(fb *brokertest.Broker) []broker.Response {
	topics := broker.NewTopics("", "dev1")
	var out []broker.Response
	for _, payload := range fb.Messages(topics.Responses()) {
		if resp, err := broker.DecodeResponse(payload); err == nil {
			out = append(out, resp)
		}
	}
	return out
}

func TestDispatchInOrder(t *testing.T) {
	d, fb := newTestDispatcher(t)

	var mu sync.Mutex
	var seen []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Register(name, func(broker.Command) (bool, string, any) {
			mu.Lock()
			seen = append(seen, name)
			mu.Unlock()
			return true, name + " ok", nil
		})
	}

	d.Start()
	defer d.Stop()

	enqueueCommand(t, d, "first")
	enqueueCommand(t, d, "second")
	enqueueCommand(t, d, "third")

	require.Eventually(t, func() bool {
		return len(responsesOn(fb)) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, seen)
}

func TestDispatchPanicRecovery(t *testing.T) {
	d, fb := newTestDispatcher(t)
	d.Register("boom", func(broker.Command) (bool, string, any) {
		panic("handler exploded")
	})
	d.Register("play", func(broker.Command) (bool, string, any) {
		return true, "play ok", nil
	})

	d.Start()
	defer d.Stop()

	boom := enqueueCommand(t, d, "boom")
	play := enqueueCommand(t, d, "play")

	require.Eventually(t, func() bool {
		return len(responsesOn(fb)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	byID := map[string]broker.Response{}
	for _, resp := range responsesOn(fb) {
		byID[resp.CommandID] = resp
	}
	assert.False(t, byID[boom.CommandID].Result)
	assert.Contains(t, byID[boom.CommandID].Message, "internal error")
	assert.True(t, byID[play.CommandID].Result)
}

func TestObserverSeesEveryCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register("play", func(broker.Command) (bool, string, any) {
		return true, "play ok", nil
	})

	var mu sync.Mutex
	var observed []string
	d.Observe(func(cmd broker.Command) {
		mu.Lock()
		observed = append(observed, cmd.Command)
		mu.Unlock()
	})

	d.Start()
	defer d.Stop()

	enqueueCommand(t, d, "play")
	enqueueCommand(t, d, "unknownThing")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(observed) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"play", "unknownThing"}, observed)
}

func TestQueueOverflowDrops(t *testing.T) {
	d, fb := newTestDispatcher(t)
	d.Register("noop", func(broker.Command) (bool, string, any) {
		return true, "noop ok", nil
	})

	// The worker is not running yet, so the queue bound applies strictly.
	for i := 0; i < inboundQueueSize+8; i++ {
		enqueueCommand(t, d, "noop")
	}

	d.Start()
	defer d.Stop()

	require.Eventually(t, func() bool {
		return len(responsesOn(fb)) == inboundQueueSize
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, responsesOn(fb), inboundQueueSize)
}
