package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coverctl/api"
	"coverctl/cover"
	"coverctl/endstop"
	"coverctl/eventlog"
	"coverctl/eventpipe"
	"coverctl/indicator"
	"coverctl/metrics"
	"coverctl/mqtt"
	"coverctl/radio"
	"coverctl/relay"
	"coverctl/scheduler"
)

// Settings are the process settings, as opposed to the device configuration.
type Settings struct {
	HTTPAddr    string
	MetricsAddr string
	Tick        time.Duration
}

// App holds the application state and dependencies.
type App struct {
	cfg      *Config
	settings Settings
	log      *zap.SugaredLogger

	mqtt      *mqtt.Client
	radio     *radio.Device
	relays    []relay.Relay
	sensors   []*endstop.Sensor
	remote    map[string]*endstop.Static // endstops reported over MQTT, by cover
	indicator indicator.Indicator
	status    *indicator.Status
	collector *metrics.Collector
	db        *sql.DB
	journal   *eventlog.Journal
	pipe      *eventpipe.EventPipe
	covers    *scheduler.Group
}

// NewApp opens every device and builds the cover controllers. On error, whatever was opened is
// released.
func NewApp(cfg *Config, settings Settings, log *zap.SugaredLogger) (*App, error) {
	app := &App{cfg: cfg, settings: settings, log: log, remote: make(map[string]*endstop.Static)}
	if err := app.init(); err != nil {
		app.Release()
		return nil, err
	}
	return app, nil
}

func (app *App) init() (err error) {
	cfg, log := app.cfg, app.log

	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		return fmt.Errorf("init indicator: %w", err)
	}
	app.status = indicator.NewStatus(app.indicator)
	app.collector = metrics.New()

	if cfg.Journal.Path != "" {
		app.db, err = eventlog.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		app.journal = eventlog.NewJournal(app.db, cfg.Journal.Buffer, log.With("component", "journal"))
	}

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	}, log.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("init MQTT: %w", err)
	}
	if app.mqtt.IsEnabled() {
		// until the broker answers
		app.status.SetConnected(false)
	}

	switch cfg.Radio.Type {
	case "", "none":
	case "serial":
		app.radio, err = radio.Open(cfg.Radio)
		if err != nil {
			return fmt.Errorf("init radio: %w", err)
		}
	default:
		return fmt.Errorf("unknown radio type %q", cfg.Radio.Type)
	}

	var loops []*scheduler.Loop
	for _, cc := range cfg.Covers {
		ctrl, err := app.newController(cc)
		if err != nil {
			return fmt.Errorf("cover %s: %w", cc.Name, err)
		}
		loops = append(loops, scheduler.NewLoop(ctrl, app.settings.Tick, log.With("component", "scheduler", "cover", cc.Name)))
	}
	if app.covers, err = scheduler.NewGroup(loops...); err != nil {
		return err
	}

	app.pipe, err = eventpipe.New(cfg.Pipe, app.onPipeCommand, log.With("component", "pipe"))
	if err != nil {
		return fmt.Errorf("init pipe: %w", err)
	}
	return nil
}

func (app *App) newController(cc CoverConfig) (*cover.Controller, error) {
	logger := app.log.With("component", "cover", "cover", cc.Name)

	var actuator cover.Actuator
	switch cc.Type {
	case coverToggle:
		r, err := relay.New(cc.Relay)
		if err != nil {
			return nil, fmt.Errorf("init relay: %w", err)
		}
		if _, ok := r.(*relay.Noop); ok {
			logger.Warnw("no relay configured, actuations are only simulated")
		}
		app.relays = append(app.relays, r)
		actuator = cover.NewToggleRelay(r)
	case coverDirectional:
		var tx radio.Transmitter = &radio.Noop{Remote: cc.RemoteCode, Logger: logger}
		if app.radio != nil {
			tx = app.radio.Remote(cc.RemoteCode)
		}
		actuator = cover.NewDirectional(tx)
	default:
		return nil, fmt.Errorf("unknown type %q", cc.Type)
	}

	publishers := cover.Publishers{app.collector, app.status, mqtt.NewBridge(app.mqtt, app.mqtt.Topics())}
	recorders := cover.Recorders{app.collector, app.status}
	if app.journal != nil {
		recorders = append(recorders, app.journal)
	}
	opts := []cover.Option{
		cover.WithLogger(logger),
		cover.WithPublisher(publishers),
		cover.WithRecorder(recorders),
	}

	if cc.Endstops.Remote() {
		static := &endstop.Static{}
		app.remote[cc.Name] = static
		opts = append(opts, cover.WithEndstops(static))
	} else {
		sensor, err := endstop.New(cc.Endstops)
		if err != nil {
			return nil, fmt.Errorf("init endstops: %w", err)
		}
		if sensor != nil {
			app.sensors = append(app.sensors, sensor)
			opts = append(opts, cover.WithEndstops(sensor))
		}
	}

	return cover.New(cc.Name, cc.coverConfig(), actuator, opts...)
}

// Run drives the covers and serves every interface until ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.covers.Run(ctx) })
	if app.journal != nil {
		g.Go(func() error { return app.journal.Run(ctx) })
	}
	if app.pipe != nil {
		go app.pipe.Start()
	}
	go func() {
		if err := app.mqtt.Connect(); err != nil {
			app.log.Errorw("MQTT connect failed", "err", err)
		}
	}()

	if app.settings.HTTPAddr != "" {
		handler := api.NewHandler(app.covers, app.eventSource(), app.log.With("component", "api"))
		g.Go(func() error { return serve(ctx, app.settings.HTTPAddr, handler.InitRoutes()) })
	}
	if app.settings.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(app.collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		g.Go(func() error { return serve(ctx, app.settings.MetricsAddr, mux) })
	}

	app.log.Infow("coverctl running", "covers", app.covers.Names(), "http", app.settings.HTTPAddr, "metrics", app.settings.MetricsAddr)
	return g.Wait()
}

func (app *App) eventSource() api.Events {
	if app.journal == nil {
		return nil
	}
	return app.journal
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

// Release releases every device. Safe to call on a partially built App.
func (app *App) Release() {
	if app.pipe != nil {
		app.pipe.Close()
	}
	if app.mqtt != nil {
		app.mqtt.Disconnect()
	}
	for _, s := range app.sensors {
		s.Release()
	}
	for _, r := range app.relays {
		r.Release()
	}
	if app.radio != nil {
		app.radio.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
	if app.indicator != nil {
		app.indicator.Shutdown()
		app.indicator.Release()
	}
}

func (app *App) onMQTTConnect() {
	app.status.SetConnected(true)
}

func (app *App) onMQTTDisconnect() {
	app.status.SetConnected(false)
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	reading, err := app.mqtt.Topics().ParseEndstops(topic, payload)
	switch {
	case err == nil:
		app.onEndstops(reading)
		return
	case !errors.Is(err, mqtt.ErrUnknownTopic):
		app.log.Warnw("ignoring endstop reading", "topic", topic, "err", err)
		return
	}

	cmd, err := app.mqtt.Topics().ParseCommand(topic, payload)
	if err != nil {
		app.log.Warnw("ignoring MQTT message", "topic", topic, "err", err)
		return
	}
	app.submit("mqtt", cmd.Cover, cmd.Request)
}

func (app *App) onEndstops(reading mqtt.EndstopReading) {
	static, ok := app.remote[reading.Cover]
	if !ok {
		app.log.Warnw("endstop reading for a cover without remote endstops", "cover", reading.Cover)
		return
	}
	app.log.Debugw("endstop reading", "cover", reading.Cover, "open", reading.Open, "closed", reading.Closed)
	static.Set(reading.Open, reading.Closed)
}

func (app *App) onPipeCommand(cmd eventpipe.Command) {
	app.submit("pipe", cmd.Cover, cmd.Request)
}

func (app *App) submit(source, name string, req cover.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.covers.Submit(ctx, name, req); err != nil {
		app.log.Warnw("request rejected", "source", source, "cover", name, "request", req, "err", err)
		return
	}
	app.log.Infow("request accepted", "source", source, "cover", name, "request", req)
}
