package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"stackscan/cmd/ui/detection"
	"stackscan/cmd/ui/spinner"
	"stackscan/pkg/detector"
	"stackscan/pkg/history"
	"stackscan/pkg/util"
)

const Version = "1.0.0"

var (
	jsonOutput      bool
	skipInteractive bool

	logoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	tipMsgStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("190")).Italic(true)
	errMsgStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("196")).Bold(true)
)

const Logo = `
███████╗████████╗ █████╗  ██████╗██╗  ██╗███████╗ ██████╗ █████╗ ███╗   ██╗
██╔════╝╚══██╔══╝██╔══██╗██╔════╝██║ ██╔╝██╔════╝██╔════╝██╔══██╗████╗  ██║
███████╗   ██║   ███████║██║     █████╔╝ ███████╗██║     ███████║██╔██╗ ██║
╚════██║   ██║   ██╔══██║██║     ██╔═██╗ ╚════██║██║     ██╔══██║██║╚██╗██║
███████║   ██║   ██║  ██║╚██████╗██║  ██╗███████║╚██████╗██║  ██║██║ ╚████║
╚══════╝   ╚═╝   ╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═══╝
`

var rootCmd = &cobra.Command{
	Use:   "stackscan [WORKSPACE_PATH]",
	Short: "Classify a project directory against a catalog of technology stacks",
	Long: Logo + `
Stackscan evaluates declarative evidence rules against a project directory and
ranks the technology stacks it finds — languages, frameworks, runtimes, and
build tooling — each with an explainable confidence score.

Ships with a builtin catalog covering Node.js, TypeScript, Rust, Go, Python,
Next.js, Django, Docker, and more. Bring your own catalog with --registry.`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	Run:     runRootCommand,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRootCommand(cmd *cobra.Command, args []string) {
	workspacePath := "."
	if len(args) > 0 {
		workspacePath = args[0]
	}

	workspacePath, err := util.ValidateWorkspacePath(workspacePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reg, opts := loadRegistryAndOptions()

	if jsonOutput || skipInteractive || !isTerminal() {
		result, err := detector.DetectStacks(context.Background(), "", workspacePath, reg, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		recordRun(workspacePath, result)
		emitJSON(result)
		return
	}

	fmt.Printf("%s\n", logoStyle.Render(Logo))

	spinnerProgram := tea.NewProgram(spinner.InitialModel("Scanning workspace..."))

	go func() {
		if _, err := spinnerProgram.Run(); err != nil {
			// Suppress the "program was killed" error message since it's expected
			if err.Error() != "program was killed" {
				fmt.Fprintf(os.Stderr, "Error running spinner: %v\n", err)
			}
		}
	}()

	result, err := detector.DetectStacks(context.Background(), "", workspacePath, reg, opts)

	spinnerProgram.Quit()
	spinnerProgram.Wait()

	if err != nil {
		fmt.Printf("%s\n", errMsgStyle.Render(fmt.Sprintf("Detection failed: %v", err)))
		os.Exit(1)
	}

	recordRun(workspacePath, result)

	if err := detection.ShowDetectionResults(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error showing detection results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", tipMsgStyle.Render("Tip: Use --json flag for CI/automation mode"))
}

// recordRun saves the result for later `stackscan history` lookups. History
// is best-effort; a failed save never fails the run.
func recordRun(root string, result *detector.WorkspaceStackDetectionResult) {
	if err := history.SaveRecord(root, result); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save run history: %v\n", err)
	}
}

func emitJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func isTerminal() bool {
	if os.Getenv("CI") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return os.Getenv("TERM") != ""
}

func init() {
	rootCmd.SetVersionTemplate("stackscan version {{.Version}}\n")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON (disables interactive mode)")
	rootCmd.PersistentFlags().BoolVar(&skipInteractive, "no-interactive", false, "Skip interactive prompts (for CI/automation)")
}
