package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"stackscan/pkg/detector"
	"stackscan/pkg/registry"
	"stackscan/pkg/util"
)

// mcpCmd starts a Model Context Protocol server over stdio so agents can
// call stack detection as a tool. Logs go to stderr; stdout carries the
// protocol.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing stack detection tools",
	Long: `Starts a Model Context Protocol (MCP) server over stdio.

MCP clients can call the detect_stacks tool to classify a project directory
and the list_stacks tool to inspect the active stack catalog.`,
	Args: cobra.NoArgs,
	Run:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	reg, opts := loadRegistryAndOptions()

	s := mcpserver.NewMCPServer(
		"stackscan", Version,
		mcpserver.WithToolCapabilities(true),
	)
	s.AddTools(
		detectStacksTool(reg, opts),
		listStacksTool(reg),
	)

	slog.Info("mcp server starting", "stacks", reg.Len(), "registry_version", reg.Version())
	if err := mcpserver.ServeStdio(s); err != nil {
		slog.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}

func detectStacksTool(reg *registry.Registry, defaults detector.Options) mcpserver.ServerTool {
	tool := mcplib.NewTool("detect_stacks",
		mcplib.WithDescription("Classify a project directory against the stack catalog and return ranked, scored detection results"),
		mcplib.WithString("path",
			mcplib.Required(),
			mcplib.Description("Absolute or relative path to the workspace root"),
		),
		mcplib.WithString("scan_mode",
			mcplib.Description("Scan mode: fast (existence checks only) or thorough (default)"),
		),
		mcplib.WithString("workspace_id",
			mcplib.Description("Caller-assigned workspace identifier; generated when omitted"),
		),
	)
	return mcpserver.ServerTool{
		Tool: tool,
		Handler: func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			args := req.GetArguments()
			path, ok := args["path"].(string)
			if !ok || path == "" {
				return mcplib.NewToolResultError("path is required"), nil
			}
			workspacePath, err := util.ValidateWorkspacePath(path)
			if err != nil {
				return mcplib.NewToolResultErrorFromErr("invalid workspace path", err), nil
			}

			opts := defaults
			if mode, ok := args["scan_mode"].(string); ok && mode != "" {
				opts.ScanMode = detector.ScanMode(mode)
			}
			workspaceID, _ := args["workspace_id"].(string)

			result, err := detector.DetectStacks(ctx, workspaceID, workspacePath, reg, opts)
			if err != nil {
				return mcplib.NewToolResultErrorFromErr("stack detection failed", err), nil
			}

			data, err := json.Marshal(result)
			if err != nil {
				return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
			}
			slog.Info("detect_stacks served",
				"workspace", result.WorkspaceID,
				"detected", len(result.DetectedStacks),
				"complete", result.Complete,
			)
			return mcplib.NewToolResultText(string(data)), nil
		},
	}
}

func listStacksTool(reg *registry.Registry) mcpserver.ServerTool {
	tool := mcplib.NewTool("list_stacks",
		mcplib.WithDescription("List the stack definitions in the active catalog"),
	)
	return mcpserver.ServerTool{
		Tool: tool,
		Handler: func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			type stackInfo struct {
				ID          string   `json:"id"`
				DisplayName string   `json:"displayName"`
				Category    string   `json:"category"`
				DependsOn   []string `json:"dependsOn,omitempty"`
			}
			stacks := make([]stackInfo, 0, reg.Len())
			for _, def := range reg.Stacks() {
				stacks = append(stacks, stackInfo{
					ID:          def.ID,
					DisplayName: def.DisplayName,
					Category:    string(def.Category),
					DependsOn:   def.DependsOn,
				})
			}
			data, err := json.Marshal(map[string]any{
				"version": reg.Version(),
				"stacks":  stacks,
			})
			if err != nil {
				return mcplib.NewToolResultErrorFromErr("failed to marshal catalog", err), nil
			}
			return mcplib.NewToolResultText(string(data)), nil
		},
	}
}
