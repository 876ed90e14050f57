package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"srtvoice/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <report.json>",
	Short: "Print the cue table of a run report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	rep, err := report.Read(args[0])
	if err != nil {
		return err
	}

	fmt.Println(report.RenderTable(rep, report.ShouldColorize(os.Stdout)))
	return nil
}
