package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 300 * time.Millisecond

func newTestDebouncer(scope TimerScope) (*Debouncer, *Registry) {
	presence := NewRegistry()
	d := NewDebouncer(presence, scope)
	d.timeout = testTimeout
	return d, presence
}

func TestNewDebouncerDefaultTimeout(t *testing.T) {
	d := NewDebouncer(NewRegistry(), ScopeSender)
	assert.Equal(t, 3*time.Second, d.timeout)
	assert.Equal(t, TypingTimeout, d.timeout)
}

func TestTypingStartExpires(t *testing.T) {
	d, presence := newTestDebouncer(ScopeSender)
	hb := newHandle("b")
	presence.Join(2, hb)

	d.Start(1, 2)
	require.Len(t, hb.named(EventUserTyping), 1)

	assert.Eventually(t, func() bool {
		return len(hb.named(EventUserStoppedTyping)) == 1
	}, 3*testTimeout, 10*time.Millisecond)
	assert.Equal(t, TypingPayload{FromID: 1, ToID: 2}, hb.named(EventUserStoppedTyping)[0].Data)
	assert.Equal(t, 0, d.Pending())

	time.Sleep(testTimeout)
	assert.Len(t, hb.named(EventUserStoppedTyping), 1, "exactly one stop event")
}

func TestTypingStartResetsTimer(t *testing.T) {
	d, presence := newTestDebouncer(ScopeSender)
	hb := newHandle("b")
	presence.Join(2, hb)

	start := time.Now()
	d.Start(1, 2)
	time.Sleep(testTimeout / 3)
	d.Start(1, 2)

	// The first timer would have fired at testTimeout.
	time.Sleep(testTimeout - testTimeout/6)
	assert.Empty(t, hb.named(EventUserStoppedTyping))

	assert.Eventually(t, func() bool {
		return len(hb.named(EventUserStoppedTyping)) == 1
	}, 3*testTimeout, 10*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), testTimeout+testTimeout/3)
}

func TestTypingSenderScopeSharesTimer(t *testing.T) {
	d, presence := newTestDebouncer(ScopeSender)
	hb, hc := newHandle("b"), newHandle("c")
	presence.Join(2, hb)
	presence.Join(3, hc)

	d.Start(1, 2)
	d.Start(1, 3)
	assert.Equal(t, 1, d.Pending())

	assert.Eventually(t, func() bool {
		return len(hc.named(EventUserStoppedTyping)) == 1
	}, 3*testTimeout, 10*time.Millisecond)
	assert.Empty(t, hb.named(EventUserStoppedTyping), "replaced recipient never sees a stop")
}

func TestTypingPairScope(t *testing.T) {
	d, presence := newTestDebouncer(ScopePair)
	hb, hc := newHandle("b"), newHandle("c")
	presence.Join(2, hb)
	presence.Join(3, hc)

	d.Start(1, 2)
	d.Start(1, 3)
	assert.Equal(t, 2, d.Pending())

	assert.Eventually(t, func() bool {
		return len(hb.named(EventUserStoppedTyping)) == 1 && len(hc.named(EventUserStoppedTyping)) == 1
	}, 3*testTimeout, 10*time.Millisecond)
}

func TestTypingStopAndCancel(t *testing.T) {
	d, presence := newTestDebouncer(ScopeSender)
	hb := newHandle("b")
	presence.Join(2, hb)

	d.Start(1, 2)
	d.Stop(1, 2)
	assert.Len(t, hb.named(EventUserStoppedTyping), 1)
	assert.Equal(t, 0, d.Pending())

	d.Start(1, 2)
	d.CancelSender(1)
	assert.Equal(t, 0, d.Pending())
	time.Sleep(2 * testTimeout)
	assert.Len(t, hb.named(EventUserStoppedTyping), 1, "cancelled timers never fire")
}
