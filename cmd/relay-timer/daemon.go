package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/relay-timer/internal/button"
	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/config"
	"github.com/sweeney/relay-timer/internal/controller"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/indicator"
	"github.com/sweeney/relay-timer/internal/log"
	"github.com/sweeney/relay-timer/internal/logic"
	"github.com/sweeney/relay-timer/internal/monitor"
	"github.com/sweeney/relay-timer/internal/mqtt"
	"github.com/sweeney/relay-timer/internal/serial"
	"github.com/sweeney/relay-timer/internal/settings"
	"github.com/sweeney/relay-timer/internal/status"
	"github.com/sweeney/relay-timer/internal/web"
)

const (
	// clockOffset starts the tick counter a minute before it wraps.
	clockOffset = clock.Ticks(1<<32 - 60_000_000)

	shutdownTimeout    = 5 * time.Second
	connectionInterval = 5 * time.Second
)

// broker is the optional MQTT side of the daemon.
type broker interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

// daemon is the fully wired controller plus its reporting surfaces.
type daemon struct {
	cfg       config.Config
	ctrl      *controller.Controller
	tracker   *status.Tracker
	server    *web.Server
	publisher broker
	logger    zerolog.Logger
}

// newDaemon wires the controller to dev. pub and mirror may be nil.
func newDaemon(cfg config.Config, dev *devices, pub broker, mirror indicator.Driver, clk clock.Clock, now func() time.Time) *daemon {
	tracker := status.NewTracker(now(), status.Config{
		Profile:     cfg.Profile,
		MinMillis:   cfg.Delay.MinMs,
		MaxMillis:   cfg.Delay.MaxMs,
		StepMillis:  cfg.Delay.StepMs,
		WiggleMicro: int64(cfg.Delay.WiggleUs),
		ActiveLow:   cfg.ActiveLow(),
		Store:       cfg.EEPROM.Kind + ":" + cfg.EEPROM.Path,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})

	registry := prometheus.NewRegistry()
	metrics := monitor.New(registry)

	drivers := indicator.Multi{tracker}
	if dev.led != nil {
		drivers = append(drivers, dev.led)
	}
	if mirror != nil {
		drivers = append(drivers, mirror)
	}
	ind := indicator.New(drivers, indicator.NewPalette(cfg.Indicator.Intensity), clk, cfg.Indicator.BlinkCycles, cfg.Indicator.BlinkPeriod)
	printer := serial.NewPrinter(dev.serial)

	polarity := polarityOf(cfg)
	timing := button.Timing{Settle: cfg.Inputs.Settle, Release: cfg.Inputs.Release, Poll: cfg.Inputs.Poll}
	newButton := func(name string, pin gpio.Input) *button.Button {
		return button.New(name, pin, polarity, timing, clk)
	}

	store := settings.New(settings.Options{
		Store:   dev.store,
		Address: cfg.EEPROM.Address,
		Limits: settings.Limits{
			DefaultMillis: cfg.Delay.DefaultMs,
			MinMillis:     cfg.Delay.MinMs,
			MaxMillis:     cfg.Delay.MaxMs,
		},
		Indicator:    ind,
		Printer:      printer,
		Clock:        clk,
		PingInterval: cfg.EEPROM.PingInterval,
	})

	d := &daemon{
		cfg:     cfg,
		tracker: tracker,
		logger:  log.WithComponent("daemon"),
	}

	observers := []controller.Observer{tracker, metrics}
	if pub != nil {
		d.publisher = pub
		observers = append(observers, controller.ObserverFunc(d.publish))
	}

	d.ctrl = controller.New(controller.Config{
		StepMillis: cfg.Delay.StepMs,
		Wiggle:     cfg.Wiggle(),
		Poll:       cfg.Inputs.Poll,
	}, controller.Hardware{
		Relay:     dev.relay,
		Activate:  newButton("activate", dev.activate),
		Cancel:    newButton("cancel", dev.cancel),
		Increment: newButton("increment", dev.increment),
		Decrement: newButton("decrement", dev.decrement),
		Indicator: ind,
		Printer:   printer,
		Clock:     clk,
	}, store, now, observers...)

	if cfg.HTTP.Addr != "" {
		d.server = web.New(cfg.HTTP.Addr, tracker, registry)
	}
	return d
}

// run blocks until ctx is cancelled or a component fails. The cause of ctx
// becomes the SHUTDOWN reason.
func (d *daemon) run(ctx context.Context) error {
	d.publishSystem("STARTUP", "")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := d.ctrl.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	if d.server != nil {
		g.Go(func() error {
			d.logger.Info().Str("addr", d.cfg.HTTP.Addr).Msg("http status server listening")
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return d.server.Shutdown(sctx)
		})
	}

	if d.publisher != nil {
		g.Go(func() error {
			d.trackConnection(gctx)
			return nil
		})
	}

	err := g.Wait()

	reason := signalName(context.Cause(ctx))
	d.logger.Info().Str("reason", reason).Msg("shutting down")
	d.publishSystem("SHUTDOWN", reason)
	return err
}

// trackConnection mirrors the broker connection state into the tracker.
func (d *daemon) trackConnection(ctx context.Context) {
	ticker := time.NewTicker(connectionInterval)
	defer ticker.Stop()
	for {
		d.tracker.SetMQTTConnected(d.publisher.IsConnected())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *daemon) publish(e logic.Event) {
	if err := d.publisher.Publish(e); err != nil {
		d.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("publish failed")
	}
}

func (d *daemon) publishSystem(event, reason string) {
	if d.publisher == nil {
		return
	}
	d.tracker.SetMQTTConnected(d.publisher.IsConnected())
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("event", event).Msg("publish system event failed")
		return
	}
	d.logger.Info().Str("event", event).Msg("published system event")
}

// clientID returns the configured MQTT client id, or a unique one so that
// several timers can share a broker without configuration.
func clientID(cfg config.MQTTConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "relay-timer-" + uuid.NewString()[:8]
}

// runDaemon opens the hardware and runs until SIGINT or SIGTERM.
func runDaemon(parent context.Context, cfg config.Config) error {
	ctx, stop := withSignals(parent)
	defer stop()

	dev, err := openDevices(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			base := log.Base()
			base.Error().Err(err).Msg("release hardware")
		}
	}()

	var (
		pub    broker
		mirror indicator.Driver
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, clientID(cfg.MQTT), mqtt.NewTopics(cfg.MQTT.TopicPrefix))
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
		if cfg.MQTT.Indicator {
			mirror = p.Indicator()
		}
	}

	base := log.Base()
	base.Info().
		Str("profile", cfg.Profile).
		Str("chip", cfg.Pins.Chip).
		Str("store", cfg.EEPROM.Path).
		Str("serial", cfg.Serial.Device).
		Msg("starting")

	return newDaemon(cfg, dev, pub, mirror, clock.NewReal(clockOffset), time.Now).run(ctx)
}
