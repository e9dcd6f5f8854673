package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/annotator/internal/llmcall"
)

const traceResponseWidth = 60

var (
	traceFile    string
	traceTask    string
	traceFailed  bool
	traceLimit   int
	traceOffset  int
	traceSummary bool
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded model calls",
	Long: `List model calls recorded by "annotator run --trace".

Without --file the task's default trace in ~/.annotator/traces is read.

Examples:
  annotator trace --task emotion
  annotator trace --file calls.jsonl --failed
  annotator trace --task qa --summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		path := traceFile
		if path == "" {
			if traceTask == "" {
				return errors.New("--file or --task is required")
			}
			path = e.home.TracePath(traceTask)
		}

		calls, err := llmcall.Load(path)
		if err != nil {
			return err
		}
		filter := llmcall.QueryFilter{
			Task:   traceTask,
			Limit:  traceLimit,
			Offset: traceOffset,
		}
		if traceFailed {
			failed := false
			filter.Success = &failed
		}
		calls = llmcall.List(calls, filter)

		out := cmd.OutOrStdout()
		if !traceSummary {
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tLINE\tTASK\tTIER\tATTEMPTS\tLATENCY\tOK\tRESPONSE")
			for _, c := range calls {
				resp := c.Response
				if !c.Success {
					resp = c.Error
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\t%t\t%s\n",
					c.Timestamp.Format(time.RFC3339), c.Line, c.Task, c.Tier, c.Attempts,
					time.Duration(c.LatencyMs)*time.Millisecond, c.Success, oneLine(resp, traceResponseWidth))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}

		s := llmcall.Summarize(calls)
		fmt.Fprintf(out, "%d calls: %d succeeded, %d failed, %d attempts, avg latency %s, tokens in/out %d/%d\n",
			s.Calls, s.Succeeded, s.Failed, s.Attempts, s.AvgLatency, s.InputTokens, s.OutputTokens)
		printDistribution(out, "Extraction tiers", s.ByTier)
		return nil
	},
}

// oneLine flattens whitespace and cuts s to width runes.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func init() {
	traceCmd.Flags().StringVarP(&traceFile, "file", "f", "", "trace file to read")
	traceCmd.Flags().StringVarP(&traceTask, "task", "t", "", "only calls for this task")
	traceCmd.Flags().BoolVar(&traceFailed, "failed", false, "only calls that exhausted their retries")
	traceCmd.Flags().IntVar(&traceLimit, "limit", 0, "show at most N calls (0: all)")
	traceCmd.Flags().IntVar(&traceOffset, "offset", 0, "skip the first N matching calls")
	traceCmd.Flags().BoolVar(&traceSummary, "summary", false, "print only the aggregate")

	rootCmd.AddCommand(traceCmd)
}
