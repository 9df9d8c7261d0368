package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/learningtriangle/ltgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the ltgate configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all config keys with their current values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tENV")
		for _, ki := range config.ShowAll(cfg) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ki.Key, ki.Value, ki.EnvVar)
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a config key to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(config.ValidKeys(), ", "))
		}
		newConsole(cmd.ErrOrStderr()).ok("%s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
