package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stackscan/pkg/history"
	"stackscan/pkg/util"
)

var historyCmd = &cobra.Command{
	Use:   "history [WORKSPACE_PATH]",
	Short: "Show the last saved detection result for a workspace",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		workspacePath := "."
		if len(args) > 0 {
			workspacePath = args[0]
		}

		workspacePath, err := util.ValidateWorkspacePath(workspacePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		rec, err := history.LoadRecord(workspacePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if rec == nil {
			fmt.Printf("%s\n", tipMsgStyle.Render("No saved run for this workspace yet. Run `stackscan` first."))
			return
		}

		if jsonOutput || skipInteractive || !isTerminal() {
			emitJSON(rec)
			return
		}

		fmt.Printf("Last scanned: %s (%s mode)\n", rec.RecordedAt.Format("2006-01-02 15:04:05"), rec.Result.ScanMode)
		for _, d := range rec.Result.DetectedStacks {
			fmt.Printf("  %-16s %.0f%% (%s)\n", d.DisplayName, d.Confidence*100, d.Category)
		}
		if len(rec.Result.DetectedStacks) == 0 {
			fmt.Println("  no stacks detected")
		}
	},
}
