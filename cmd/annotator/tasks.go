package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/annotator/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the available annotation tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		reg, err := e.registry()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK\tDELAY\tON UNAVAILABLE\tOUTPUT FIELDS\tDESCRIPTION")
		for _, t := range reg.List() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				t.Name(), t.DefaultDelay(), policyName(t.Policy()),
				strings.Join(t.OutputFields(), ", "), t.Description())
		}
		return tw.Flush()
	},
}

func policyName(p tasks.UnavailablePolicy) string {
	switch p {
	case tasks.EmitError:
		return "error text"
	default:
		return "default answer"
	}
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
