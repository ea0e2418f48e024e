package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voicepipe/internal/config"
)

func NewInitConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		// The config it writes may not exist or parse yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				path = config.DefaultFilePath()
			}
			if path == "" {
				return errors.New("cannot determine config location; pass --config")
			}
			if err := config.SaveDefault(path); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("config already exists: %s", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Config written: %s\n", path)
			return nil
		},
	}
}
