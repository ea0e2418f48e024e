package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voicepipe/internal/asr"
	"voicepipe/internal/bench"
	"voicepipe/internal/config"
)

func rowOpener(cfg config.Config) bench.Opener {
	httpClient := asr.NewHTTPClient(cfg)
	return func(r bench.Row) (asr.Engine, error) {
		rowCfg := cfg
		rowCfg.ModelSize = r.Model
		rowCfg.ComputeType = r.Compute
		rowCfg.BeamSize = r.Beam
		rowCfg.BestOf = r.BestOf
		return asr.New(rowCfg, asr.ParamsFromConfig(rowCfg), httpClient)
	}
}

func inputFile(cfg config.Config, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, err := bench.LatestRecording(cfg.RecordingsDir)
	if err != nil {
		return "", fmt.Errorf("no file given and %w", err)
	}
	return path, nil
}

func NewBenchCmd(deps *Dependencies) *cobra.Command {
	var matrixPath string
	cmd := &cobra.Command{
		Use:   "bench [audio-file]",
		Short: "Time every model configuration on one recording",
		Long:  "Runs each configuration of the matrix on the file (default: the newest recording) and reports load and transcription times.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := bench.LoadMatrix(matrixPath)
			if err != nil {
				return err
			}
			file, err := inputFile(deps.Config, args)
			if err != nil {
				return err
			}
			bench.NewRunner(rowOpener(deps.Config), os.Stdout).Benchmark(cmd.Context(), file, deps.Config.Engine, m.Bench)
			return nil
		},
	}
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "YAML file with bench/compare configuration rows")
	return cmd
}

func NewCompareCmd(deps *Dependencies) *cobra.Command {
	var matrixPath string
	cmd := &cobra.Command{
		Use:   "compare [audio-file]",
		Short: "Compare transcriptions across model configurations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := bench.LoadMatrix(matrixPath)
			if err != nil {
				return err
			}
			file, err := inputFile(deps.Config, args)
			if err != nil {
				return err
			}
			_, err = bench.NewRunner(rowOpener(deps.Config), os.Stdout).Compare(cmd.Context(), file, m.Compare)
			return err
		},
	}
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "YAML file with bench/compare configuration rows")
	return cmd
}
