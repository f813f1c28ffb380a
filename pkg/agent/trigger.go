package agent

import (
	"bufio"
	"io"
	"sync"
)

// Trigger is the push-to-talk activation source. Implementations
// deliver one edge-triggered event per activation gesture; the agent
// never cares which gesture produced it.
type Trigger interface {
	// Events returns the activation channel. Events may be dropped
	// while a previous activation is still pending.
	Events() <-chan struct{}

	// Close stops the trigger and releases its resources.
	Close() error
}

// ChanTrigger is a Trigger fired programmatically. The control
// server's activation endpoint fires one, and tests fire them
// directly.
type ChanTrigger struct {
	ch   chan struct{}
	once sync.Once
	done chan struct{}
}

// NewChanTrigger creates a ChanTrigger.
func NewChanTrigger() *ChanTrigger {
	return &ChanTrigger{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Fire delivers one activation event. If an event is already pending
// it is coalesced.
func (t *ChanTrigger) Fire() {
	select {
	case <-t.done:
	case t.ch <- struct{}{}:
	default:
	}
}

// Events implements Trigger.
func (t *ChanTrigger) Events() <-chan struct{} { return t.ch }

// Close implements Trigger.
func (t *ChanTrigger) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// LineTrigger fires on every line read from r. Pointing it at stdin
// makes the Enter key a push-to-talk gesture for terminals without a
// global hotkey facility.
type LineTrigger struct {
	inner  *ChanTrigger
	closer io.Closer
}

// NewLineTrigger starts reading r in a goroutine. If r is also an
// io.Closer it is closed by Close, which unblocks the reader.
func NewLineTrigger(r io.Reader) *LineTrigger {
	t := &LineTrigger{inner: NewChanTrigger()}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	}

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			t.inner.Fire()
		}
	}()

	return t
}

// Events implements Trigger.
func (t *LineTrigger) Events() <-chan struct{} { return t.inner.Events() }

// Close implements Trigger.
func (t *LineTrigger) Close() error {
	t.inner.Close()
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// MultiTrigger merges several triggers into one activation stream.
type MultiTrigger struct {
	inner    *ChanTrigger
	triggers []Trigger
	stop     chan struct{}
	once     sync.Once
}

// NewMultiTrigger fans the given triggers into a single Trigger.
func NewMultiTrigger(triggers ...Trigger) *MultiTrigger {
	m := &MultiTrigger{
		inner:    NewChanTrigger(),
		triggers: triggers,
		stop:     make(chan struct{}),
	}
	for _, t := range triggers {
		go func(t Trigger) {
			for {
				select {
				case <-m.stop:
					return
				case _, ok := <-t.Events():
					if !ok {
						return
					}
					m.inner.Fire()
				}
			}
		}(t)
	}
	return m
}

// Events implements Trigger.
func (m *MultiTrigger) Events() <-chan struct{} { return m.inner.Events() }

// Close stops the merge loop and closes every underlying trigger.
func (m *MultiTrigger) Close() error {
	var first error
	m.once.Do(func() {
		close(m.stop)
		m.inner.Close()
		for _, t := range m.triggers {
			if err := t.Close(); err != nil && first == nil {
				first = err
			}
		}
	})
	return first
}
