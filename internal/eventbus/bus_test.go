package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBus_EmitInRegistrationOrder(t *testing.T) {
	bus := New(zap.NewNop())

	var order []int
	bus.On("ping", func(args ...any) { order = append(order, 1) })
	bus.On("ping", func(args ...any) { order = append(order, 2) })
	bus.On("ping", func(args ...any) { order = append(order, 3) })

	bus.Emit("ping")

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_EmitPassesArgs(t *testing.T) {
	bus := New(zap.NewNop())

	var got []any
	bus.On("msg", func(args ...any) { got = args })
	bus.Emit("msg", "hello", 42)

	assert.Equal(t, []any{"hello", 42}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(zap.NewNop())

	calls := 0
	off := bus.On("tick", func(args ...any) { calls++ })

	bus.Emit("tick")
	off()
	bus.Emit("tick")
	off() // second call is a no-op

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.ListenerCount("tick"))
}

func TestBus_Once(t *testing.T) {
	bus := New(zap.NewNop())

	calls := 0
	bus.Once("boot", func(args ...any) { calls++ })

	bus.Emit("boot")
	bus.Emit("boot")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.ListenerCount("boot"))
}

func TestBus_OnceUnsubscribesBeforePanickingCallbackRuns(t *testing.T) {
	bus := New(zap.NewNop())

	calls := 0
	bus.Once("boom", func(args ...any) {
		calls++
		panic("listener failure")
	})

	bus.Emit("boom")
	bus.Emit("boom")

	assert.Equal(t, 1, calls)
}

func TestBus_SnapshotDispatch(t *testing.T) {
	bus := New(zap.NewNop())

	var order []string
	bus.On("evt", func(args ...any) {
		order = append(order, "first")
		// Subscribing mid-dispatch must not affect this pass.
		bus.On("evt", func(args ...any) { order = append(order, "added") })
	})
	bus.On("evt", func(args ...any) { order = append(order, "second") })

	bus.Emit("evt")
	assert.Equal(t, []string{"first", "second"}, order)

	order = nil
	bus.Emit("evt")
	assert.Equal(t, []string{"first", "second", "added"}, order)
}

func TestBus_UnsubscribeDuringDispatchStillDeliversSnapshot(t *testing.T) {
	bus := New(zap.NewNop())

	var order []string
	var offSecond Unsubscribe
	bus.On("evt", func(args ...any) {
		order = append(order, "first")
		offSecond()
	})
	offSecond = bus.On("evt", func(args ...any) { order = append(order, "second") })

	bus.Emit("evt")

	// The snapshot taken at emit time still includes the second listener.
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, bus.ListenerCount("evt"))
}

func TestBus_PanicDoesNotBlockRemainingListeners(t *testing.T) {
	bus := New(zap.NewNop())

	var order []string
	bus.On("evt", func(args ...any) { panic("broken listener") })
	bus.On("evt", func(args ...any) { order = append(order, "survivor") })

	bus.Emit("evt")

	assert.Equal(t, []string{"survivor"}, order)
}

func TestBus_Off(t *testing.T) {
	bus := New(zap.NewNop())

	calls := 0
	fn := Callback(func(args ...any) { calls++ })
	bus.On("evt", fn)
	bus.Off("evt", fn)

	bus.Emit("evt")

	assert.Equal(t, 0, calls)
}

type countingListener struct {
	calls int
}

func (l *countingListener) handle(args ...any) { l.calls++ }

func TestBus_OffMatchesMethodValuesAcrossReceivers(t *testing.T) {
	bus := New(zap.NewNop())

	a := &countingListener{}
	b := &countingListener{}
	bus.On("evt", a.handle)
	bus.On("evt", b.handle)

	// Method values share a code pointer, so Off drops both subscriptions.
	bus.Off("evt", a.handle)
	bus.Emit("evt")
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestBus_UnsubscribeRemovesOnlyItsSubscription(t *testing.T) {
	bus := New(zap.NewNop())

	a := &countingListener{}
	b := &countingListener{}
	offA := bus.On("evt", a.handle)
	bus.On("evt", b.handle)

	offA()
	bus.Emit("evt")
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestBus_RemoveAllListeners(t *testing.T) {
	bus := New(zap.NewNop())

	bus.On("a", func(args ...any) {})
	bus.On("b", func(args ...any) {})
	bus.On("b", func(args ...any) {})

	bus.RemoveAllListeners("b")
	assert.Equal(t, 1, bus.ListenerCount("a"))
	assert.Equal(t, 0, bus.ListenerCount("b"))

	bus.RemoveAllListeners()
	assert.Equal(t, 0, bus.ListenerCount("a"))
	assert.Empty(t, bus.EventNames())
}

func TestBus_EventNames(t *testing.T) {
	bus := New(zap.NewNop())

	bus.On("a", func(args ...any) {})
	bus.On("b", func(args ...any) {})

	names := bus.EventNames()
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}
