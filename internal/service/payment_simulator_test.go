package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmerStub struct {
	mu   sync.Mutex
	refs []string
	done chan string
}

func newConfirmerStub() *confirmerStub {
	return &confirmerStub{done: make(chan string, 10)}
}

func (c *confirmerStub) ConfirmMobilePayment(_ context.Context, reference string) error {
	c.mu.Lock()
	c.refs = append(c.refs, reference)
	c.mu.Unlock()
	c.done <- reference
	return nil
}

func (c *confirmerStub) confirmed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.refs))
	copy(out, c.refs)
	return out
}

func TestPaymentSimulatorSchedule(t *testing.T) {
	stub := newConfirmerStub()
	sim := NewPaymentSimulator(stub, 5*time.Millisecond)
	defer sim.Stop()

	sim.Schedule("REF-1")

	select {
	case ref := <-stub.done:
		assert.Equal(t, "REF-1", ref)
	case <-time.After(time.Second):
		t.Fatal("confirmation never fired")
	}
}

func TestPaymentSimulatorCancel(t *testing.T) {
	stub := newConfirmerStub()
	sim := NewPaymentSimulator(stub, 50*time.Millisecond)
	defer sim.Stop()

	sim.Schedule("REF-1")
	require.True(t, sim.Cancel("REF-1"))

	select {
	case <-stub.done:
		t.Fatal("cancelled confirmation still fired")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Empty(t, stub.confirmed())
}

func TestPaymentSimulatorCancelUnknown(t *testing.T) {
	stub := newConfirmerStub()
	sim := NewPaymentSimulator(stub, time.Millisecond)
	defer sim.Stop()

	assert.False(t, sim.Cancel("never-scheduled"))
}

func TestPaymentSimulatorRescheduleResetsTimer(t *testing.T) {
	stub := newConfirmerStub()
	sim := NewPaymentSimulator(stub, 5*time.Millisecond)
	defer sim.Stop()

	sim.Schedule("REF-1")
	sim.Schedule("REF-1")

	select {
	case <-stub.done:
	case <-time.After(time.Second):
		t.Fatal("confirmation never fired")
	}

	// The second Schedule replaced the first timer, so only one fire.
	select {
	case ref := <-stub.done:
		t.Fatalf("duplicate confirmation for %s", ref)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPaymentSimulatorStop(t *testing.T) {
	stub := newConfirmerStub()
	sim := NewPaymentSimulator(stub, 50*time.Millisecond)

	sim.Schedule("REF-1")
	sim.Schedule("REF-2")
	sim.Stop()

	select {
	case <-stub.done:
		t.Fatal("stopped simulator still fired")
	case <-time.After(150 * time.Millisecond):
	}
}
