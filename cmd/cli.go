// SPDX-License-Identifier: MIT

// Package cmd parses the command line into a resolved configuration.
package cmd

import (
	"errors"
	"fmt"
	"time"

	"sculptor/internal/config"
	"sculptor/internal/dsp"
	"sculptor/internal/render"
	"sculptor/pkg/build"

	"github.com/spf13/cobra"
)

// Commands recognised by main. The empty command runs the live engine.
const (
	CommandRun    = ""
	CommandList   = "list"
	CommandRender = "render"
	CommandConfig = "config"
)

// MinGainDB is the lowest gain accepted on the command line; anything at or
// below it mutes.
const MinGainDB = -100.0

// Options is the parsed command line.
type Options struct {
	Command    string
	ConfigPath string
	Config     *config.Config

	// PickDevice opens the interactive device picker before starting.
	PickDevice bool

	Render RenderOptions
}

// RenderOptions are the arguments of the render command.
type RenderOptions struct {
	Input      string
	Output     string
	ReportPath string
	Render     render.Options
}

// flagValues holds raw flag values; only flags the user set are applied on
// top of the loaded configuration.
type flagValues struct {
	logLevel string
	verbose  bool

	inputDevice  int
	outputDevice int
	device       int
	channels     int
	sampleRate   float64
	frames       int
	lowLatency   bool

	masterDB, leftDB, rightDB, midDB, sideDB float64

	phase       float64
	invertLeft  bool
	invertRight bool
	midSide     bool
	bypass      bool

	noTUI     bool
	refreshHz float64

	ws        bool
	wsAddress string
	udp       bool
	udpTarget string

	record     bool
	outputFile string
	bitDepth   int

	blockSize     int
	traceInterval time.Duration
}

// ParseArgs parses args (without the program name), loads the configuration
// file and applies flag overrides.
func ParseArgs(args []string) (*Options, error) {
	info := build.Get()
	opts := &Options{}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         build.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRun
			return opts.resolve(cmd, &fv)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	// cobra falls back to os.Args when given nil.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			return opts.resolve(cmd, &fv)
		},
	}

	renderCmd := &cobra.Command{
		Use:   "render <input.wav> <output.wav>",
		Short: "Process a WAV file offline and report the meter readings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRender
			opts.Render.Input, opts.Render.Output = args[0], args[1]
			if opts.Render.Input == opts.Render.Output {
				return errors.New("input and output must differ")
			}
			return opts.resolve(cmd, &fv)
		},
	}
	renderCmd.Flags().StringVar(&opts.Render.ReportPath, "report", "",
		"Write the render report as YAML to this file ('-' for stdout)")
	renderCmd.Flags().IntVar(&fv.blockSize, "block-size", render.DefaultBlockSize,
		"Frames processed per block")
	renderCmd.Flags().DurationVar(&fv.traceInterval, "trace-interval", render.DefaultTraceInterval,
		"Audio time between meter trace points in the report (0 disables)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandConfig
			return opts.resolve(cmd, &fv)
		},
	}

	rootCmd.AddCommand(listCmd, renderCmd, configCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration
	pf.StringVar(&opts.ConfigPath, "config", "",
		"Configuration file. Default is ./config.yaml when present")
	pf.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level=debug)")

	// Processing parameters
	pf.Float64Var(&fv.masterDB, "master-gain", 0, "Master gain in dB (-inf to +10)")
	pf.Float64Var(&fv.leftDB, "left-gain", 0, "Left channel gain in dB")
	pf.Float64Var(&fv.rightDB, "right-gain", 0, "Right channel gain in dB")
	pf.Float64Var(&fv.midDB, "mid-gain", 0, "Mid gain in dB, used with --mid-side")
	pf.Float64Var(&fv.sideDB, "side-gain", 0, "Side gain in dB, used with --mid-side")
	pf.Float64VarP(&fv.phase, "phase", "p", 0,
		"Right channel phase offset in degrees; 360 degrees is 10 ms")
	pf.BoolVar(&fv.invertLeft, "invert-left", false, "Invert the left channel polarity")
	pf.BoolVar(&fv.invertRight, "invert-right", false, "Invert the right channel polarity")
	pf.BoolVarP(&fv.midSide, "mid-side", "m", false, "Enable mid/side processing")
	pf.BoolVar(&fv.bypass, "bypass", false, "Pass audio through unprocessed")

	// Recording output format; also the render output depth
	pf.IntVar(&fv.bitDepth, "bit-depth", config.DefaultBitDepth, "Output bit depth (16 or 24)")

	rf := rootCmd.Flags()

	// Audio device configuration
	rf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Device ID for both input and output. Use 'list' command to see available devices.")
	rf.IntVar(&fv.inputDevice, "input-device", config.DefaultDeviceID, "Input device ID")
	rf.IntVar(&fv.outputDevice, "output-device", config.DefaultDeviceID, "Output device ID")
	rf.BoolVar(&opts.PickDevice, "pick", false, "Choose the device interactively")
	rf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of input channels (1=mono, 2=stereo)")
	rf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rf.IntVarP(&fv.frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Display
	rf.BoolVar(&fv.noTUI, "no-tui", false, "Run headless; meters go to the transports and the log")
	rf.Float64Var(&fv.refreshHz, "refresh-hz", config.DefaultRefreshHz, "Meter refresh rate")

	// Transports
	rf.BoolVar(&fv.ws, "ws", false, "Serve meter frames over WebSocket")
	rf.StringVar(&fv.wsAddress, "ws-address", config.DefaultWebSocketAddress, "WebSocket listen address")
	rf.BoolVar(&fv.udp, "udp", false, "Send meter frames as UDP packets")
	rf.StringVar(&fv.udpTarget, "udp-target", config.DefaultUDPAddress, "UDP target host:port")

	// Recording
	rf.BoolVarP(&fv.record, "record", "r", false, "Record the processed output")
	rf.StringVarP(&fv.outputFile, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}

// resolve loads the configuration and applies every flag the user set.
func (o *Options) resolve(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	gain := func(name string, dst *float32, db *float64) {
		set(name, func() { *dst = float32(dsp.DBToGain(*db, MinGainDB)) })
	}

	set("log-level", func() { cfg.LogLevel = fv.logLevel })
	set("verbose", func() {
		if fv.verbose {
			cfg.LogLevel = "debug"
		}
	})

	gain("master-gain", &cfg.Params.MasterGain, &fv.masterDB)
	gain("left-gain", &cfg.Params.LeftGain, &fv.leftDB)
	gain("right-gain", &cfg.Params.RightGain, &fv.rightDB)
	gain("mid-gain", &cfg.Params.MidGain, &fv.midDB)
	gain("side-gain", &cfg.Params.SideGain, &fv.sideDB)
	set("phase", func() { cfg.Params.PhaseOffsetDegrees = float32(fv.phase) })
	set("invert-left", func() { cfg.Params.InvertLeft = fv.invertLeft })
	set("invert-right", func() { cfg.Params.InvertRight = fv.invertRight })
	set("mid-side", func() { cfg.Params.MidSide = fv.midSide })
	set("bypass", func() { cfg.Params.Bypass = fv.bypass })
	set("bit-depth", func() { cfg.Recording.BitDepth = fv.bitDepth })

	set("device", func() {
		cfg.Audio.InputDevice = fv.device
		cfg.Audio.OutputDevice = fv.device
	})
	set("input-device", func() { cfg.Audio.InputDevice = fv.inputDevice })
	set("output-device", func() { cfg.Audio.OutputDevice = fv.outputDevice })
	set("channels", func() { cfg.Audio.Channels = fv.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = fv.frames })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })

	set("no-tui", func() { cfg.Display.TUI = !fv.noTUI })
	set("refresh-hz", func() { cfg.Display.RefreshHz = fv.refreshHz })

	set("ws", func() { cfg.Transport.WebSocket.Enabled = fv.ws })
	set("ws-address", func() { cfg.Transport.WebSocket.Address = fv.wsAddress })
	set("udp", func() { cfg.Transport.UDP.Enabled = fv.udp })
	set("udp-target", func() { cfg.Transport.UDP.TargetAddress = fv.udpTarget })

	set("record", func() { cfg.Recording.Enabled = fv.record })
	set("output", func() { cfg.Recording.OutputFile = fv.outputFile })

	cfg.Params = cfg.Params.Sanitize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if o.Command == CommandRender {
		ro := render.DefaultOptions()
		ro.Params = cfg.Params
		ro.Ballistics = cfg.Meter
		ro.BlockSize = fv.blockSize
		ro.TraceInterval = fv.traceInterval
		set("bit-depth", func() { ro.BitDepth = fv.bitDepth })
		if ro.BlockSize < 1 || ro.BlockSize > dsp.MaxBlockSize {
			return fmt.Errorf("block size %d out of range 1..%d", ro.BlockSize, dsp.MaxBlockSize)
		}
		o.Render.Render = ro
	}

	o.Config = cfg
	return nil
}
