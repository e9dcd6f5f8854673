package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the configured model service is reachable",
	Long: `Probe runs the same reachability check that precedes every batch run.

Ollama is checked with GET /api/tags, OpenAI-compatible services by
listing models. Exits non-zero when the service cannot be reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		c, err := e.newCaller()
		if err != nil {
			return err
		}
		if err := c.Probe(cmd.Context()); err != nil {
			return err
		}

		cfg := e.config.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "%s reachable at %s (model %s)\n",
			c.Provider(), cfg.Provider.BaseURL, cfg.Provider.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
