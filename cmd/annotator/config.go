package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/annotator/internal/config"
)

var (
	configForce bool
	configJSON  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the default configuration to --config, or to
~/.annotator/config.yaml when no path is given.

Examples:
  annotator config init
  annotator config init --force          # overwrite an existing file
  annotator config init --config ./config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = e.home.ConfigPath()
		}
		if err := config.WriteDefault(path, configForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [prefix]",
	Short: "Show effective configuration values",
	Long: `Show every configuration key with its effective value after the
config file and ANNOTATOR_* environment overrides are applied.

Examples:
  annotator config show
  annotator config show provider.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		entries := e.config.Entries(prefix)
		if configJSON {
			return writeJSON(cmd, entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		for _, entry := range entries {
			fmt.Fprintf(tw, "%s\t%v\t%s\n", entry.Key, entry.Value, source(entry))
		}
		return tw.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		entry, err := e.config.Lookup(args[0])
		if err != nil {
			return err
		}
		if configJSON {
			return writeJSON(cmd, entry)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%v\n", entry.Value)
		return nil
	},
}

func source(e config.Entry) string {
	if e.Default {
		return "default"
	}
	return "override"
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configShowCmd.Flags().BoolVar(&configJSON, "json", false, "print JSON")
	configGetCmd.Flags().BoolVar(&configJSON, "json", false, "print JSON")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
