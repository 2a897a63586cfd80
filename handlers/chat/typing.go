package chat

import (
	"sync"
	"time"

	"linkinpurry/backend/metrics"
)

// TypingTimeout is how long a typing indicator lasts without a new typing_start.
const TypingTimeout = 3 * time.Second

// TimerScope selects how typing timers are keyed.
type TimerScope string

const (
	// ScopeSender keeps one timer per sender: typing to a second recipient replaces the
	// first recipient's timer, and that recipient never receives a stop event. An explicit
	// typing_stop toward the replaced recipient still notifies it without touching the
	// armed timer.
	ScopeSender TimerScope = "sender"
	// ScopePair keeps one timer per sender and recipient.
	ScopePair TimerScope = "pair"
)

type timerKey struct {
	from int64
	to   int64
}

type typingTimer struct {
	timer *time.Timer
	to    int64
}

// Debouncer turns typing_start events into user_typing notifications and emits
// user_stopped_typing when a sender goes quiet.
type Debouncer struct {
	presence *Registry
	scope    TimerScope
	timeout  time.Duration

	mu     sync.Mutex
	timers map[timerKey]*typingTimer
}

func NewDebouncer(presence *Registry, scope TimerScope) *Debouncer {
	if scope != ScopePair {
		scope = ScopeSender
	}
	return &Debouncer{
		presence: presence,
		scope:    scope,
		timeout:  TypingTimeout,
		timers:   make(map[timerKey]*typingTimer),
	}
}

func (d *Debouncer) key(fromID, toID int64) timerKey {
	if d.scope == ScopePair {
		return timerKey{from: fromID, to: toID}
	}
	return timerKey{from: fromID}
}

// Start notifies toID that fromID is typing and (re)arms the stop timer.
func (d *Debouncer) Start(fromID, toID int64) {
	k := d.key(fromID, toID)
	entry := &typingTimer{to: toID}

	d.mu.Lock()
	if prev, ok := d.timers[k]; ok {
		prev.timer.Stop()
	}
	entry.timer = time.AfterFunc(d.timeout, func() { d.expire(k, entry, fromID) })
	d.timers[k] = entry
	d.mu.Unlock()

	d.notify(EventUserTyping, fromID, toID)
}

// Stop clears the timer toward toID and notifies the recipient right away.
func (d *Debouncer) Stop(fromID, toID int64) {
	k := d.key(fromID, toID)

	d.mu.Lock()
	if entry, ok := d.timers[k]; ok && entry.to == toID {
		entry.timer.Stop()
		delete(d.timers, k)
	}
	d.mu.Unlock()

	d.notify(EventUserStoppedTyping, fromID, toID)
}

// CancelSender drops every timer owned by fromID without notifying anyone.
func (d *Debouncer) CancelSender(fromID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, entry := range d.timers {
		if k.from == fromID {
			entry.timer.Stop()
			delete(d.timers, k)
		}
	}
}

// Pending returns the number of armed timers.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

func (d *Debouncer) expire(k timerKey, entry *typingTimer, fromID int64) {
	d.mu.Lock()
	// A timer that was replaced or cancelled after it started firing is stale.
	if d.timers[k] != entry {
		d.mu.Unlock()
		return
	}
	delete(d.timers, k)
	d.mu.Unlock()

	d.notify(EventUserStoppedTyping, fromID, entry.to)
}

func (d *Debouncer) notify(event string, fromID, toID int64) {
	h, ok := d.presence.Lookup(toID)
	if !ok {
		return
	}
	kind := "start"
	if event == EventUserStoppedTyping {
		kind = "stop"
	}
	if err := h.Emit(event, TypingPayload{FromID: fromID, ToID: toID}); err == nil {
		metrics.ChatTypingEventsTotal.WithLabelValues(kind).Inc()
	}
}
