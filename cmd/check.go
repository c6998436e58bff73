package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/core/constraint"
	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/infra/snapshot"
)

// errViolations makes check exit non-zero.
var errViolations = errors.New("snapshot has constraint violations")

var checkCmd = &cobra.Command{
	Use:   "check <snapshot>",
	Short: "Report capacity and charter violations present in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  checkSnapshot,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkSnapshot(cmd *cobra.Command, args []string) error {
	w, err := window(cmd)
	if err != nil {
		return err
	}
	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}
	b := viewmodel.Build(snap, w)
	out := cmd.OutOrStdout()
	violations := constraint.Audit(b)
	for _, v := range violations {
		fmt.Fprintf(out, "%s\t%s\t%s\n", v.Kind, v.GuideID, v.Message)
	}
	s := b.Summary()
	fmt.Fprintf(out, "%d guides, %d runs, %d/%d seats, %d guests queued in %d groups\n",
		s.Guides, s.Runs, s.AssignedGuests, s.Capacity, s.UnassignedGuests, s.UnassignedGroups)
	if len(violations) > 0 {
		return errViolations
	}
	return nil
}
