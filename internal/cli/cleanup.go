package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voicepipe/internal/asr"
	"voicepipe/internal/llm"
)

func NewCleanupCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <text>",
		Short: "Re-punctuate text with the local language model",
		Long:  "Sends the text to the local model with the cleanup prompt and prints the punctuated text and suggested filename.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := llm.New(deps.Config, asr.NewHTTPClient(deps.Config))
			deps.Out.Info(fmt.Sprintf("Sending request to %s...", deps.Config.LLMModel))
			res, err := client.Cleanup(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			deps.Out.Cleaned(res.PunctuatedText, "", res.Elapsed)
			if res.SuggestedFilename != "" {
				deps.Out.Info("Suggested filename: " + res.SuggestedFilename)
			}
			return nil
		},
	}
}
