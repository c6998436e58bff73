package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/app"
	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/infra/snapshot"
)

var planOut string

var planCmd = &cobra.Command{
	Use:   "plan <snapshot>",
	Short: "Best-fit every queued group of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  planQueue,
}

func init() {
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "write the planned snapshot to this file")
	rootCmd.AddCommand(planCmd)
}

func planQueue(cmd *cobra.Command, args []string) error {
	w, err := window(cmd)
	if err != nil {
		return err
	}
	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}
	res, err := app.AutoPlan(cmd.Context(), snap, w, logger.New("plan"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, op := range res.Operations {
		fmt.Fprintf(out, "%s\t%s\n", op.ID, op.Description)
	}
	ids := make([]string, 0, len(res.Rejected))
	for id := range res.Rejected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "queued\t%s\t%s\n", id, res.Rejected[id].Message)
	}
	fmt.Fprintf(out, "%d planned, %d left in queue\n", len(res.Operations), len(res.Rejected))
	if planOut != "" {
		return snapshot.Save(planOut, res.Snapshot)
	}
	return nil
}
