package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/core/viewmodel"
	"github.com/kilianp07/dispatchboard/infra/snapshot"
	"github.com/kilianp07/dispatchboard/pkg/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <snapshot>",
	Short: "Export the board plan as JSON or CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  exportPlan,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func exportPlan(cmd *cobra.Command, args []string) error {
	if exportFormat != "json" && exportFormat != "csv" {
		return fmt.Errorf("unknown format %q", exportFormat)
	}
	w, err := window(cmd)
	if err != nil {
		return err
	}
	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}
	b := viewmodel.Build(snap, w)

	var out io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if exportFormat == "csv" {
		return export.WriteCSV(out, b)
	}
	return export.WriteJSON(out, export.NewPlan(snap.Date, b))
}
