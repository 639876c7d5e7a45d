package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/Zyko0/go-sdl3/bin/binttf"
	"github.com/fatih/color"

	"github.com/AaronLay10/DynamicSeg/internal/api"
	"github.com/AaronLay10/DynamicSeg/internal/catalog"
	"github.com/AaronLay10/DynamicSeg/internal/config"
	"github.com/AaronLay10/DynamicSeg/internal/display"
	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
	"github.com/AaronLay10/DynamicSeg/internal/events"
	"github.com/AaronLay10/DynamicSeg/internal/mqtt"
	"github.com/AaronLay10/DynamicSeg/internal/presenter"
	"github.com/AaronLay10/DynamicSeg/internal/script"
	"github.com/AaronLay10/DynamicSeg/internal/storage/postgres"
	"github.com/AaronLay10/DynamicSeg/internal/storage/sqlite"
	"github.com/AaronLay10/DynamicSeg/internal/trigger"
	"github.com/AaronLay10/DynamicSeg/internal/version"
)

// triggerBaud is the DLP-IO8-G's fixed line rate.
const triggerBaud = 115200

type runOptions struct {
	configPath  string
	order       string
	output      string
	participant string
}

// mirrorDrainTimeout bounds how long exit waits for mirrors to catch up.
const mirrorDrainTimeout = 5 * time.Second

func loadConfig(path string) (*config.ExperimentConfig, error) {
	cfg, err := config.LoadExperimentConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfigOrDefault never stops a session: an unreadable or malformed
// config is reported on warn and the defaults apply, including the default
// segmentation order.
func loadConfigOrDefault(path string, warn io.Writer) *config.ExperimentConfig {
	cfg, err := loadConfig(path)
	if err == nil {
		return cfg
	}
	color.New(color.FgYellow).Fprintf(warn, "Warning: %v; using default settings\n", err)
	events.Emit("warn", "system.error", "config unusable, using defaults", map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})
	return config.Default()
}

// resolveOrder picks the session's order and reports a fallback on the
// console and as an event.
func resolveOrder(literal string, cfg *config.ExperimentConfig) script.Order {
	order, source, err := script.ResolveOrder(literal, cfg.OrderNode())
	if err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if source == script.OrderFromDefault {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Using default segmentation order %s\n", order)
		events.Emit("warn", "order.fallback", "using default segmentation order", map[string]interface{}{
			"order": order.String(),
		})
	} else {
		events.Emit("info", "order.resolved", "", map[string]interface{}{
			"order":  order.String(),
			"source": string(source),
		})
	}
	return order
}

func loadScript(cfg *config.ExperimentConfig) (*script.Script, error) {
	if path := cfg.ScriptFile(); path != "" {
		s, err := script.LoadScript(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load script %s: %w", path, err)
		}
		return s, nil
	}
	return script.Default(), nil
}

func displayOptions(cfg config.DisplayConfig, abortKey string) (display.Options, error) {
	width, height := cfg.WindowSize()
	opts := display.Options{
		Title:      "DynamicSeg",
		Width:      width,
		Height:     height,
		Fullscreen: cfg.Fullscreen,
		VSync:      cfg.VSyncEnabled(),
		FontFile:   cfg.FontFile,
		FontSize:   cfg.TextFontSize(),
		WrapChars:  cfg.WrapWidth(),
		QuitKey:    abortKey,
	}

	bg, text, fixation := cfg.Colors()
	var err error
	if opts.Background, err = display.ParseColor(bg); err != nil {
		return opts, fmt.Errorf("display.background: %w", err)
	}
	if opts.Foreground, err = display.ParseColor(text); err != nil {
		return opts, fmt.Errorf("display.foreground: %w", err)
	}
	if opts.Fixation, err = display.ParseColor(fixation); err != nil {
		return opts, fmt.Errorf("display.fixation_color: %w", err)
	}
	return opts, nil
}

func runExperiment(parent context.Context, opts runOptions) error {
	cfg := loadConfigOrDefault(opts.configPath, os.Stderr)
	order := resolveOrder(opts.order, cfg)

	var err error
	participant := opts.participant
	if participant == "" {
		if participant, err = promptParticipant(os.Stdin, os.Stdout); err != nil {
			return err
		}
	} else if err := validParticipant(participant); err != nil {
		return err
	}

	now := time.Now()
	session := sessionID(participant, now)
	csvPath := outputPath(cfg.OutputDir(), participant, opts.output, now)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "dynamicseg starting", map[string]interface{}{
		"service":  "dynamicseg",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"session":  session,
		"output":   csvPath,
	})

	scr, err := loadScript(cfg)
	if err != nil {
		return err
	}
	clips, err := catalog.Open(cfg.StimuliDir())
	if err != nil {
		return err
	}

	store, err := eventlog.NewCSVStore(csvPath)
	if err != nil {
		return err
	}
	eventLog := eventlog.New(store)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	closers := attachMirrors(cfg, eventLog, session, participant, csvPath, cancel)
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), mirrorDrainTimeout)
		if err := eventLog.Close(drainCtx); err != nil {
			log.Printf("mirrors did not catch up before exit: %v", err)
		}
		drainCancel()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	if port := cfg.MonitorPort(); port > 0 {
		shutdown, err := startMonitor(port, session, participant, cancel)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	dispOpts, err := displayOptions(cfg.Display, cfg.AbortKey())
	if err != nil {
		return err
	}

	defer binsdl.Load().Unload()
	defer binttf.Load().Unload()

	window, err := display.Open(dispOpts)
	if err != nil {
		return err
	}
	// Run closes the window on a normal finish; Close is idempotent.
	defer window.Close()

	movieW, movieH := cfg.Display.MovieBox()
	s, err := presenter.NewSession(presenter.Config{
		Script:  scr,
		Order:   order,
		Catalog: clips,
		Log:     eventLog,
		Display: window,
		Input:   window,
		Loader:  display.NewLoader(movieW, movieH),
		Keys: presenter.Keys{
			Boundary: cfg.BoundaryKey(),
			EndClip:  cfg.EndClipKey(),
			Abort:    cfg.AbortKey(),
		},
		Fixation: cfg.FixationSeconds(),
	})
	if err != nil {
		return err
	}

	runErr := s.Run(ctx)
	events.Emit("info", "system.shutdown", "", map[string]interface{}{
		"session": session,
		"state":   string(s.State()),
		"rows":    len(eventLog.Rows()),
	})

	switch {
	case runErr == nil:
		color.New(color.FgGreen).Printf("Saved %s\n", csvPath)
		events.Emit("info", "log.saved", csvPath, map[string]interface{}{"rows": len(eventLog.Rows())})
	case errors.Is(runErr, presenter.ErrAborted):
		color.New(color.FgYellow).Printf("Session aborted; %d rows saved to %s\n", len(eventLog.Rows()), csvPath)
	}
	return runErr
}

// attachMirrors adds every configured mirror to eventLog and returns the
// functions that release them. A mirror that cannot start is reported and
// skipped; the CSV file is the record of truth.
func attachMirrors(cfg *config.ExperimentConfig, eventLog *eventlog.Log, session, participant, csvPath string, abort func()) []func() {
	var closers []func()

	if path := cfg.SQLite.Path; path != "" {
		m, err := sqlite.Open(path, session, participant, csvPath)
		if err != nil {
			log.Printf("sqlite: %v", err)
		} else {
			eventLog.AddMirror(m)
			closers = append(closers, func() { m.Close() })
		}
	}

	if cfg.Postgres.Enabled {
		c, err := postgres.Open(session, participant)
		if err != nil {
			log.Printf("postgres: %v", err)
		} else {
			eventLog.AddMirror(c)
			closers = append(closers, func() { c.Close() })
		}
	}

	if _, ok := os.LookupEnv("MQTT_URL"); ok {
		client := mqtt.NewClient("dynamicseg-" + session)
		if client.Start() {
			markers := mqtt.NewMarkerMirror(client, cfg.MQTTTopic(), session)
			eventLog.AddMirror(markers)
			if err := mqtt.ListenForAbort(client, cfg.MQTTTopic(), session, abort); err != nil {
				log.Printf("mqtt: remote abort unavailable: %v", err)
			}
			events.Emit("info", "device.connected", "mqtt", map[string]interface{}{
				"broker": mqtt.BrokerURL(),
				"topic":  markers.Topic(),
			})
			closers = append(closers, func() {
				markers.Close()
				client.Disconnect()
			})
		}
	}

	if device := cfg.Trigger.Device; device != "" {
		box, err := trigger.Open(device, triggerBaud)
		if err != nil {
			events.Emit("error", "device.error", "trigger box unavailable", map[string]interface{}{
				"device": device,
				"error":  err.Error(),
			})
		} else {
			eventLog.AddMirror(trigger.NewMirror(box, trigger.DefaultLines()))
			events.Emit("info", "device.connected", "trigger", map[string]interface{}{"device": device})
			closers = append(closers, func() {
				box.Close()
				events.Emit("info", "device.disconnected", "trigger", map[string]interface{}{"device": device})
			})
		}
	}

	return closers
}

// startMonitor serves the monitor and returns its shutdown function.
func startMonitor(port int, session, participant string, abort func()) (func(), error) {
	creds, err := api.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}

	tracker := api.NewTracker(session, participant)
	sub := events.Subscribe()
	go tracker.Run(sub)

	srv := api.New(api.Options{
		Port:        port,
		Credentials: creds,
		TLS:         api.TLSFilesFromEnv(),
		Tracker:     tracker,
		Abort:       abort,
	})
	srv.Start()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("monitor shutdown: %v", err)
		}
		events.Unsubscribe(sub)
	}, nil
}
