// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sculptor/cmd"
	"sculptor/internal/audio"
	"sculptor/internal/config"
	"sculptor/internal/log"
	"sculptor/internal/meter"
	"sculptor/internal/monitor"
	"sculptor/internal/render"
	"sculptor/internal/transport"
	"sculptor/internal/transport/udp"
	"sculptor/internal/tui"
	"sculptor/pkg/build"

	"golang.org/x/sync/errgroup"
)

// recordingCheckInterval is how often the recorder is checked for a fatal
// write error.
const recordingCheckInterval = time.Second

// main is the entry point. The program flow is divided into three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands (list, render, config)
//   - Initialize PortAudio and open the duplex stream
//
// 2. Concurrent Phase (Hot Path):
//   - The audio callback processes every block
//   - The monitor polls levels for the TUI or the transports
//   - The recorder drains the processed output to disk
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or the TUI quitting
//   - Stop recording and close transports
//   - Close the stream and terminate PortAudio
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds have no ldflags; report and carry on.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if opts.Config == nil {
		// --help or --version
		return
	}
	setLogLevel(opts.Config.LogLevel)

	switch opts.Command {
	case cmd.CommandList:
		err = withPortAudio(func() error { return audio.ListDevices(os.Stdout) })
	case cmd.CommandRender:
		err = runRender(opts.Render)
	case cmd.CommandConfig:
		err = printConfig(opts.Config)
	default:
		err = withPortAudio(func() error { return run(opts) })
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func setLogLevel(s string) {
	level, ok := log.ParseLevel(s)
	if !ok {
		log.Warnf("unknown log level %q, using %s", s, level)
	}
	log.SetLevel(level)
}

func withPortAudio(fn func() error) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			log.Errorf("terminating PortAudio: %v", err)
		}
	}()
	return fn()
}

func printConfig(cfg *config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runRender(ro cmd.RenderOptions) error {
	report, err := render.File(ro.Input, ro.Output, ro.Render)
	if err != nil {
		return err
	}
	fmt.Println(report.Summary())

	switch ro.ReportPath {
	case "":
		return nil
	case "-":
		return report.WriteYAML(os.Stdout)
	}

	f, err := os.Create(ro.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// run is the live engine: stream, monitor, display and transports.
func run(opts *cmd.Options) error {
	cfg := opts.Config

	if opts.PickDevice {
		ok, err := pickDevice(cfg)
		if err != nil || !ok {
			return err
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	engine, err := audio.NewEngine(cfg)
	if err != nil {
		return err
	}

	mon := monitor.New(engine, meter.WithBallistics(cfg.Meter))
	transports, err := openTransports(cfg, mon)
	if err != nil {
		return err
	}
	defer closeTransports(transports)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// The first callback marks the start of the hot path.
	if err := engine.Start(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := startRecording(engine, cfg); err != nil {
			engine.Close()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Display.TUI {
		restore, err := logToFile()
		if err != nil {
			engine.Close()
			return err
		}
		defer restore()

		title := fmt.Sprintf("%s %s", build.Get().Name, build.Get().Version)
		model := tui.NewMeterModel(title, engine, mon, cfg.Display.Interval())
		g.Go(func() error {
			defer cancel()
			return tui.RunMeters(gctx, model)
		})
	} else {
		log.Infof("running headless, press Ctrl+C to stop")
		g.Go(func() error {
			return mon.Run(gctx, cfg.Display.Interval())
		})
	}

	g.Go(func() error {
		return watchRecording(gctx, engine)
	})

	runErr := g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if rec := engine.Recording(); rec != nil {
		path, frames, dropped := rec.Path(), rec.Frames(), rec.Dropped()
		if err := engine.StopRecording(); err != nil {
			log.Errorf("stopping recording: %v", err)
		} else {
			log.Infof("recording saved to %s (%d frames, %d dropped)", path, frames, dropped)
		}
	}

	if err := engine.Close(); err != nil {
		log.Errorf("closing audio engine: %v", err)
	}
	return runErr
}

func pickDevice(cfg *config.Config) (bool, error) {
	devices, err := audio.HostDevices()
	if err != nil {
		return false, err
	}
	sel, ok, err := tui.PickDevice(devices)
	if err != nil || !ok {
		return false, err
	}
	cfg.Audio.InputDevice = sel.Device.ID
	cfg.Audio.OutputDevice = sel.Device.ID
	cfg.Audio.SampleRate = sel.SampleRate
	return true, cfg.Validate()
}

func openTransports(cfg *config.Config, mon *monitor.Monitor) ([]transport.Transport, error) {
	var ts []transport.Transport

	if ws := cfg.Transport.WebSocket; ws.Enabled {
		wst, err := transport.NewWebSocketTransport(ws.Address, ws.Path)
		if err != nil {
			return nil, err
		}
		log.Infof("serving meter frames at %s", wst.URL())
		ts = append(ts, wst)
	}

	if u := cfg.Transport.UDP; u.Enabled {
		sender, err := udp.NewSender(u.TargetAddress)
		if err != nil {
			closeTransports(ts)
			return nil, err
		}
		pub, err := udp.NewPublisher(u.SendInterval, sender)
		if err != nil {
			sender.Close()
			closeTransports(ts)
			return nil, err
		}
		pub.Start()
		ts = append(ts, pub)
	}

	if !cfg.Display.TUI {
		// One line per second at debug level.
		ts = append(ts, transport.NewLoggingTransport(int(cfg.Display.RefreshHz)))
	}

	for _, t := range ts {
		mon.AddSink(t)
	}
	return ts, nil
}

func closeTransports(ts []transport.Transport) {
	for _, t := range ts {
		if err := t.Close(); err != nil {
			log.Errorf("closing transport %T: %v", t, err)
		}
	}
}

func startRecording(engine *audio.Engine, cfg *config.Config) error {
	path := cfg.RecordingPath(time.Now())
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}
	return engine.StartRecording(path)
}

// watchRecording stops a recording whose writer has failed so the file is
// finalized while the stream keeps running.
func watchRecording(ctx context.Context, engine *audio.Engine) error {
	ticker := time.NewTicker(recordingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rec := engine.Recording()
			if rec == nil || rec.Err() == nil {
				continue
			}
			log.Errorf("recording failed: %v", rec.Err())
			if err := engine.StopRecording(); err != nil && !errors.Is(err, rec.Err()) {
				log.Errorf("stopping recording: %v", err)
			}
		}
	}
}

// logToFile moves log output off the terminal while the TUI owns it.
func logToFile() (restore func(), err error) {
	path := filepath.Join(os.TempDir(), build.Get().Name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
