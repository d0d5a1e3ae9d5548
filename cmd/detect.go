package cmd

import (
	"github.com/spf13/cobra"
)

// detectCmd runs stack detection with the full flag surface.
var detectCmd = &cobra.Command{
	Use:   "detect [WORKSPACE_PATH]",
	Short: "Detect technology stacks in a project directory",
	Long: Logo + `
Evaluates the stack catalog against a project directory and ranks every stack
whose evidence clears its detection threshold. Stacks with some evidence that
fall short are reported separately for diagnostics.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) {
	runRootCommand(cmd, args)
}

func init() {
	detectCmd.Flags().BoolVar(&fastScan, "fast", false, "Fast scan: existence checks only, shallow depth")
	detectCmd.Flags().StringSliceVar(&includeStacks, "include", nil, "Only evaluate these stack ids")
	detectCmd.Flags().StringSliceVar(&excludeStacks, "exclude", nil, "Skip these stack ids (ignored when --include is set)")
	detectCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum traversal depth for pattern indicators")
	detectCmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum files enumerated across the whole run")
	detectCmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Maximum bytes read per file")
	detectCmd.Flags().IntVar(&timeoutMs, "timeout", 0, "Wall-clock budget in milliseconds")
	detectCmd.Flags().StringVar(&registryPath, "registry", "", "Path to an external stack catalog (JSON)")
}
