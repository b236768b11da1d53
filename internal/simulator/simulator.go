// Package simulator runs a single section member as a live process: local
// timeout events become real timers, parsec votes loop straight back as
// single-node consensus, and RPCs addressed to us self-deliver.
//
// Ownership boundary: the simulator owns the event queue, the armed timers
// and the member state it drives. The bus and the recorder are borrowed.
package simulator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maidsafe/routing-model/internal/eventbus"
	"github.com/maidsafe/routing-model/routing"
)

// Recorder persists delivered events; *trace.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, event routing.Event) error
}

// Timeouts maps each armed local event to the real delay before it fires.
type Timeouts struct {
	WorkUnit       time.Duration
	CheckRelocate  time.Duration
	CheckElder     time.Duration
	NodeConnection time.Duration
	ResourceProof  time.Duration
	Accept         time.Duration
}

// DefaultTimeouts are paced for a human-readable demo run.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		WorkUnit:       500 * time.Millisecond,
		CheckRelocate:  2 * time.Second,
		CheckElder:     1 * time.Second,
		NodeConnection: 3 * time.Second,
		ResourceProof:  1 * time.Second,
		Accept:         5 * time.Second,
	}
}

// Config configures a simulator run.
type Config struct {
	Timeouts  Timeouts
	QueueSize int
}

// DefaultConfig returns the demo run defaults.
func DefaultConfig() Config {
	return Config{Timeouts: DefaultTimeouts(), QueueSize: 1024}
}

// Simulator drives one MemberState with real time and looped-back consensus.
type Simulator struct {
	state    *routing.MemberState
	bus      *eventbus.Bus
	recorder Recorder
	cfg      Config

	queue     chan routing.Event
	processed atomic.Int64

	mu     sync.Mutex
	timers []*time.Timer
}

// New wires a simulator around the given member state. bus and recorder may
// be nil.
func New(cfg Config, state *routing.MemberState, bus *eventbus.Bus, recorder Recorder) *Simulator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	return &Simulator{
		state:    state,
		bus:      bus,
		recorder: recorder,
		cfg:      cfg,
		queue:    make(chan routing.Event, cfg.QueueSize),
	}
}

// Deliver injects an external event, as if it arrived from the network.
func (s *Simulator) Deliver(ctx context.Context, event routing.Event) error {
	select {
	case s.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Processed is the number of events fed to the state machine so far.
func (s *Simulator) Processed() int64 { return s.processed.Load() }

// enqueue loops an emitted event back into the queue, giving up on shutdown.
func (s *Simulator) enqueue(ctx context.Context, event routing.Event) {
	select {
	case s.queue <- event:
	case <-ctx.Done():
	}
}

// Run arms the event loops and processes events until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	s.state.StartEventLoops()
	s.dispatchEmitted(ctx)

	for {
		select {
		case <-ctx.Done():
			s.stopTimers()
			return
		case event := <-s.queue:
			s.step(ctx, event)
		}
	}
}

func (s *Simulator) step(ctx context.Context, event routing.Event) {
	s.processed.Add(1)
	s.record(ctx, event)
	if !s.state.TryNext(event) {
		log.Warn().Str("event", event.Describe()).Msg("event not handled, discarding")
		return
	}
	log.Debug().Str("event", event.Describe()).Msg("event handled")
	s.dispatchEmitted(ctx)
}

// dispatchEmitted routes everything the last step produced: votes loop back
// as consensus, RPCs addressed to us self-deliver, armed local timeouts
// become timers, the rest is observed via the bus.
func (s *Simulator) dispatchEmitted(ctx context.Context) {
	emitted := s.state.Action.Events()
	s.state.Action.ClearEvents()

	for _, event := range emitted {
		s.publish(event)
		switch event.Kind {
		case routing.EventParsecConsensus:
			s.enqueue(ctx, event)
		case routing.EventRPC:
			if s.addressedToUs(event.RPC) {
				s.enqueue(ctx, event)
			} else {
				log.Info().Str("rpc", event.RPC.Kind.String()).Msg("rpc left the section")
			}
		case routing.EventLocal:
			s.armOrLog(ctx, event)
		case routing.EventNodeChange:
			log.Info().Str("change", event.Describe()).Msg("membership changed")
		}
	}
}

// addressedToUs reports whether an emitted RPC stays with us. RPCs without a
// single-node destination are section-addressed; we are the only live
// section, so they self-deliver.
func (s *Simulator) addressedToUs(rpc routing.RPC) bool {
	name, ok := rpc.DestinationName()
	if !ok {
		return true
	}
	if s.state.Action.IsOurName(name) {
		return true
	}
	_, member := s.state.Action.Member(name)
	return member
}

func (s *Simulator) armOrLog(ctx context.Context, event routing.Event) {
	delay, armed := s.timeoutFor(event.Local.Kind)
	if !armed {
		log.Debug().Str("event", event.Describe()).Msg("local event observed")
		return
	}
	s.armTimer(ctx, delay, event)
}

func (s *Simulator) timeoutFor(kind routing.LocalEventKind) (time.Duration, bool) {
	switch kind {
	case routing.LocalTimeoutWorkUnit:
		return s.cfg.Timeouts.WorkUnit, true
	case routing.LocalTimeoutCheckRelocate:
		return s.cfg.Timeouts.CheckRelocate, true
	case routing.LocalTimeoutCheckElder:
		return s.cfg.Timeouts.CheckElder, true
	case routing.LocalCheckRelocatedNodeConnectionTimeout:
		return s.cfg.Timeouts.NodeConnection, true
	case routing.LocalCheckResourceProofTimeout:
		return s.cfg.Timeouts.ResourceProof, true
	case routing.LocalTimeoutAccept:
		return s.cfg.Timeouts.Accept, true
	}
	return 0, false
}

func (s *Simulator) armTimer(ctx context.Context, delay time.Duration, event routing.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := time.AfterFunc(delay, func() {
		select {
		case s.queue <- event:
		case <-ctx.Done():
		}
	})
	s.timers = append(s.timers, timer)
}

func (s *Simulator) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
}

func (s *Simulator) publish(event routing.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

func (s *Simulator) record(ctx context.Context, event routing.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		log.Error().Err(err).Str("event", event.Describe()).Msg("trace record failed")
	}
}
