// SPDX-License-Identifier: EPL-2.0

// Command midisine plays a sine wave that follows the notes arriving on its
// MIDI input, logs every MIDI event it receives and sends a Note On/Off pair
// on its MIDI output every block.
//
// Typing a number on stdin sets the frequency in Hz; an empty line quits.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/rtproc"
	"github.com/ik5/rtproc/backend/dummy"
	"github.com/ik5/rtproc/backend/offline"
	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/internal/config"
	"github.com/ik5/rtproc/internal/observe"
	"github.com/ik5/rtproc/rtchan"
)

var version = "dev"

// server is a backend whose statistics can be exported.
type server interface {
	client.Backend
	observe.EngineStats
	InjectStats() rtchan.StatsReader
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults when empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "midisine: %v\n", err)
			return 1
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))
	slog.SetDefault(logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	b, err := newBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to create backend", "err", err)
		return 1
	}

	var (
		provider *observe.Provider
		metrics  *observe.Metrics
	)
	if cfg.Metrics.ListenAddr != "" {
		provider, err = observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "midisine", ServiceVersion: version})
		if err != nil {
			logger.Error("failed to init metrics provider", "err", err)
			return 1
		}
		if metrics, err = observe.NewMetrics(provider.MeterProvider()); err != nil {
			logger.Error("failed to create metrics", "err", err)
			return 1
		}
	}

	logger.Info("midisine starting",
		"config", *configPath,
		"client", cfg.Client.Name,
		"backend", cfg.Backend.Kind,
		"sample_rate", cfg.Backend.SampleRate,
		"buffer_size", cfg.Backend.BufferSize,
	)

	g, gctx := errgroup.WithContext(ctx)

	if metrics != nil {
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: metricsMux(provider), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	var ctl *synthControl
	setup := func(c *client.Client) (client.NotificationHandler, client.ProcessHandler, error) {
		s, sc, err := newSynth(c, synthConfig{
			frequency:    cfg.Synth.Frequency,
			amplitude:    cfg.Synth.Amplitude,
			relayCap:     cfg.Channels.MidiRelayCapacity,
			frequencyCap: cfg.Channels.FrequencyCapacity,
		})
		if err != nil {
			return nil, nil, err
		}
		ctl = sc
		return notifications{log: logger}, s.handler(), nil
	}
	onActive := func(a *client.AsyncClient) {
		if metrics != nil {
			metrics.ObserveClient(a)
			metrics.ObserveBackend(string(cfg.Backend.Kind), b)
			metrics.ObserveChannel("midi_inject", b.InjectStats())
			for name, s := range ctl.stats {
				metrics.ObserveChannel(name, s)
			}
		}
		g.Go(func() error { return logCopies(gctx, ctl.copies, logger) })
		// Scan cannot be interrupted, so the reader stays out of the group.
		go readControl(os.Stdin, ctl, cancel, logger)
	}

	g.Go(func() error {
		defer cancel()
		return rtproc.Run(gctx, b, cfg.Client.Name, setup,
			rtproc.WithLogger(logger),
			rtproc.WithConnections(connections(cfg)...),
			rtproc.WithActivateHook(onActive),
		)
	})

	runErr := g.Wait()

	if metrics != nil {
		if err := metrics.Close(); err != nil {
			logger.Warn("metrics close error", "err", err)
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics provider shutdown error", "err", err)
		}
	}
	if runErr != nil {
		logger.Error("run error", "err", runErr)
		return 1
	}
	logger.Info("goodbye")
	return 0
}

func newBackend(cfg *config.Config, logger *slog.Logger) (server, error) {
	bc := cfg.Backend
	switch bc.Kind {
	case config.BackendOffline:
		events := make([]offline.Event, len(bc.Events))
		for i, ev := range bc.Events {
			events[i] = offline.Event{Frame: ev.Frame, Port: ev.Port, Bytes: ev.Message()}
		}
		return offline.New(offline.Config{
			SampleRate: bc.SampleRate,
			BufferSize: client.Frames(bc.BufferSize),
			Input:      bc.Input,
			Output:     bc.Output,
			Channels:   bc.Channels,
			BitDepth:   bc.BitDepth,
			Duration:   bc.Duration,
			Events:     events,
			Logger:     logger,
		})
	default:
		return dummy.New(
			dummy.WithSampleRate(bc.SampleRate),
			dummy.WithBufferSize(client.Frames(bc.BufferSize)),
			dummy.WithLogger(logger),
			dummy.WithClock(),
		)
	}
}

// connections returns the configured connections, or the default wiring of
// the synth ports to the first system ports.
func connections(cfg *config.Config) []rtproc.Connection {
	if len(cfg.Connections) > 0 {
		out := make([]rtproc.Connection, len(cfg.Connections))
		for i, c := range cfg.Connections {
			out[i] = rtproc.Connection{Src: c.Src, Dst: c.Dst}
		}
		return out
	}

	name := cfg.Client.Name
	return []rtproc.Connection{
		{Src: "system:midi_capture_1", Dst: name + ":midi_input"},
		{Src: name + ":midi_output", Dst: "system:midi_playback_1"},
		{Src: name + ":audio_output", Dst: "system:playback_1"},
		{Src: name + ":audio_output", Dst: "system:playback_2"},
	}
}

func metricsMux(p *observe.Provider) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", p.Handler())
	return mux
}

// readControl publishes each number read from r as the new frequency and
// calls quit on an empty line. It returns at the end of r.
func readControl(r io.Reader, ctl *synthControl, quit func(), log *slog.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			log.Info("quit requested")
			quit()
			return
		}
		f, err := strconv.ParseFloat(line, 64)
		if err != nil || f <= 0 {
			log.Warn("not a frequency", "input", line)
			continue
		}
		ctl.frequency.Publish(f)
		log.Info("frequency requested", "hz", f)
	}
}

// notifications logs server lifecycle events.
type notifications struct {
	client.NopNotificationHandler
	log *slog.Logger
}

func (n notifications) Shutdown(reason string) {
	n.log.Info("server shut down the client", "reason", reason)
}

func (n notifications) Freewheel(_ *client.Client, enabled bool) {
	n.log.Debug("freewheel", "enabled", enabled)
}

func (n notifications) PortsConnected(_ *client.Client, a, b string, connected bool) {
	n.log.Debug("ports connected", "a", a, "b", b, "connected", connected)
}

func (n notifications) XRun(*client.Client) client.Control {
	n.log.Warn("xrun")
	return client.Continue
}
