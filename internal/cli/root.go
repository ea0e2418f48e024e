package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicepipe/internal/app"
	"voicepipe/internal/config"
	"voicepipe/internal/output"
	"voicepipe/internal/version"
)

// Dependencies are resolved once the flags have been parsed.
type Dependencies struct {
	Config config.Config
	Out    *output.Formatter
}

type rootFlags struct {
	configPath   string
	quick        bool
	targetWindow string
	engine       string
	model        string
	compute      string
	language     string
	beam         int
	bestOf       int
	debug        bool
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	deps := &Dependencies{Out: output.NewFormatter(os.Stdout)}

	rootCmd := &cobra.Command{
		Use:   "voicepipe [audio-file]",
		Short: "Record, transcribe and route speech",
		Long: "voicepipe records the microphone, transcribes it with a local speech model and sends the text " +
			"to the clipboard, a browser chat tab or a local language model.\n\n" +
			"Without arguments it records until one of the keys 1-5 picks an action. " +
			"With --quick, Escape stops and the text is pasted at the cursor. " +
			"Given an audio file it transcribes that file instead.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			deps.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := app.New(deps.Config, deps.Out)
			if len(args) == 1 {
				return a.RunFileMode(ctx, args[0])
			}
			// A second Ctrl+C after the recording stopped terminates the program.
			a.SetOnRecordingStopped(stop)
			return a.RunRecordMode(ctx, flags.quick)
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	bindFlags(rootCmd, flags)

	rootCmd.AddCommand(NewBenchCmd(deps))
	rootCmd.AddCommand(NewCompareCmd(deps))
	rootCmd.AddCommand(NewCleanupCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewInitConfigCmd(flags))

	return rootCmd
}

func bindFlags(cmd *cobra.Command, flags *rootFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/voicepipe/config.toml)")
	pf.StringVar(&flags.engine, "engine", "", "transcription engine: whispercpp, server or vosk")
	pf.StringVar(&flags.model, "model", "", "model size (tiny, base, small, medium, large)")
	pf.StringVar(&flags.compute, "compute", "", "compute type: float16 or int8")
	pf.StringVar(&flags.language, "language", "", "spoken language code, empty to auto-detect")
	pf.IntVar(&flags.beam, "beam-size", 0, "beam size")
	pf.IntVar(&flags.bestOf, "best-of", 0, "best-of candidates")
	pf.BoolVar(&flags.debug, "debug", false, "enable all debug output")

	cmd.Flags().BoolVarP(&flags.quick, "quick", "q", false, "quick mode: Esc stops, text is pasted at the cursor and submitted")
	cmd.Flags().StringVar(&flags.targetWindow, "target-window", "", "window title to refocus before a quick paste")
}

// loadConfig applies flags explicitly set on the command line over the
// file and environment values.
func loadConfig(cmd *cobra.Command, f *rootFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("engine") {
		cfg.Engine = f.engine
	}
	if changed("model") {
		cfg.ModelSize = f.model
	}
	if changed("compute") {
		cfg.ComputeType = f.compute
	}
	if changed("language") {
		cfg.Language = f.language
	}
	if changed("beam-size") {
		cfg.BeamSize = f.beam
	}
	if changed("best-of") {
		cfg.BestOf = f.bestOf
	}
	if changed("target-window") {
		cfg.TargetWindow = f.targetWindow
	}
	if f.debug {
		cfg.RecordDebug = true
		cfg.HotkeyDebug = true
		cfg.UploadDebug = true
		cfg.LLMDebug = true
		cfg.FFmpegDebug = true
	}
	if err := config.Validate(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
