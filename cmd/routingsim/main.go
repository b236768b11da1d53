package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maidsafe/routing-model/internal/eventbus"
	"github.com/maidsafe/routing-model/internal/logging"
	"github.com/maidsafe/routing-model/internal/simulator"
	"github.com/maidsafe/routing-model/internal/trace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "routingsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	runFor := flag.Duration("run-for", 0, "stop after this duration (0 runs until interrupted)")
	traceDB := flag.String("trace-db", "", "record the run into this SQLite database")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := defaultSimConfig()
	if *configPath != "" {
		loaded, err := loadSimConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *runFor > 0 {
		cfg.RunFor = *runFor
	}
	if *traceDB != "" {
		cfg.TraceDB = *traceDB
	}

	state := buildMemberState(cfg)

	bus := eventbus.NewBus(cfg.QueueSize)
	counter := startEventCounter(bus.Subscribe(cfg.QueueSize))
	bus.Start()

	var recorder simulator.Recorder
	if cfg.TraceDB != "" {
		store, err := trace.Open(cfg.TraceDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := store.BeginRun(context.Background(), cfg.TraceLabel)
		if err != nil {
			return err
		}
		log.Info().Str("run_id", runID).Str("db", cfg.TraceDB).Msg("recording trace")
		recorder = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.RunFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunFor)
		defer cancel()
	}

	sim := simulator.New(
		simulator.Config{Timeouts: cfg.Timeouts, QueueSize: cfg.QueueSize},
		state, bus, recorder,
	)

	log.Info().
		Int("members", len(cfg.Members)).
		Int("our_name", int(cfg.OurAttributes.Name)).
		Msg("simulator starting")
	started := time.Now()
	sim.Run(ctx)

	bus.Stop()
	byKind := <-counter
	stats := bus.Stats()
	log.Info().
		Dur("ran_for", time.Since(started)).
		Int64("processed", sim.Processed()).
		Int64("published", stats.Published).
		Int64("dropped", stats.Dropped).
		Msg("simulator stopped")
	for kind, count := range byKind {
		log.Info().Str("kind", kind).Int64("count", count).Msg("event totals")
	}
	return nil
}

// startEventCounter tallies bus traffic by event kind; the totals arrive on
// the returned channel once the bus closes the subscription.
func startEventCounter(sub <-chan eventbus.Notification) <-chan map[string]int64 {
	out := make(chan map[string]int64, 1)
	go func() {
		byKind := make(map[string]int64)
		for notification := range sub {
			byKind[notification.Event.Kind.String()]++
		}
		out <- byKind
	}()
	return out
}
