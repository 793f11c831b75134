package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// PaymentConfirmer is the callback the simulator fires once the sandbox
// delay elapses. Satisfied by LoanService.ConfirmMobilePayment.
type PaymentConfirmer interface {
	ConfirmMobilePayment(ctx context.Context, reference string) error
}

// PaymentSimulator stands in for a mobile-money gateway callback: each
// scheduled reference is confirmed after a fixed delay unless cancelled
// first. Timers live in memory only; references lost to a restart are
// picked up by the scheduler's pending-payment sweep.
type PaymentSimulator struct {
	confirmer PaymentConfirmer
	delay     time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewPaymentSimulator(confirmer PaymentConfirmer, delay time.Duration) *PaymentSimulator {
	return &PaymentSimulator{
		confirmer: confirmer,
		delay:     delay,
		timers:    make(map[string]*time.Timer),
	}
}

// Schedule arms a one-shot confirmation for the reference. Scheduling the
// same reference twice resets its timer.
func (s *PaymentSimulator) Schedule(reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[reference]; ok {
		t.Stop()
	}
	s.timers[reference] = time.AfterFunc(s.delay, func() {
		s.fire(reference)
	})
}

// Cancel disarms a pending confirmation. Returns false when the timer has
// already fired or was never scheduled.
func (s *PaymentSimulator) Cancel(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[reference]
	if !ok {
		return false
	}
	delete(s.timers, reference)
	return t.Stop()
}

// Stop disarms every pending timer, used on shutdown. Unfired references
// remain PENDING in the database for the sweep to confirm.
func (s *PaymentSimulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for reference, t := range s.timers {
		t.Stop()
		delete(s.timers, reference)
	}
}

func (s *PaymentSimulator) fire(reference string) {
	s.mu.Lock()
	delete(s.timers, reference)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.confirmer.ConfirmMobilePayment(ctx, reference); err != nil {
		// The hourly sweep retries anything left PENDING.
		log.Printf("simulated payment confirmation failed for %s: %v", reference, err)
	}
}
