package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"stackscan/pkg/registry"
)

var (
	registryHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	registryDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and validate stack catalogs",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stacks in the active catalog",
	Args:  cobra.NoArgs,
	Run:   runRegistryList,
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate PATH",
	Short: "Validate an external stack catalog document",
	Args:  cobra.ExactArgs(1),
	Run:   runRegistryValidate,
}

func runRegistryList(cmd *cobra.Command, args []string) {
	reg, _ := loadRegistryAndOptions()

	if jsonOutput {
		stacks := reg.Stacks()
		emitJSON(map[string]any{"version": reg.Version(), "stacks": stacks})
		return
	}

	fmt.Println(registryHeaderStyle.Render(fmt.Sprintf("Stack catalog v%s (%d stacks)", reg.Version(), reg.Len())))
	for _, def := range reg.Stacks() {
		line := fmt.Sprintf("  %-12s %-20s %s", def.ID, def.DisplayName, registryDimStyle.Render(string(def.Category)))
		if len(def.DependsOn) > 0 {
			line += registryDimStyle.Render(fmt.Sprintf("  depends on %v", def.DependsOn))
		}
		fmt.Println(line)
	}
}

func runRegistryValidate(cmd *cobra.Command, args []string) {
	reg, err := registry.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %d stacks, version %s\n", reg.Len(), reg.Version())
}

func init() {
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryValidateCmd)
	registryListCmd.Flags().StringVar(&registryPath, "registry", "", "Path to an external stack catalog (JSON)")
}
