package cmd

import (
	"fmt"
	"os"

	"stackscan/pkg/config"
	"stackscan/pkg/detector"
	"stackscan/pkg/registry"
)

var (
	registryPath  string
	fastScan      bool
	includeStacks []string
	excludeStacks []string
	maxDepth      int
	maxFiles      int
	maxBytes      int64
	timeoutMs     int
)

// loadRegistryAndOptions resolves the catalog and detection options from the
// defaults file overlaid with command-line flags, exiting on configuration
// errors.
func loadRegistryAndOptions() (*registry.Registry, detector.Options) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	path := cfg.Registry.Path
	if registryPath != "" {
		path = registryPath
	}

	reg := registry.Builtin()
	if path != "" {
		reg, err = registry.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	opts := detector.Options{
		IncludeStacks: includeStacks,
		ExcludeStacks: excludeStacks,
		MaxDepth:      cfg.Scan.MaxDepth,
		ScanMode:      detector.ScanMode(cfg.Scan.Mode),
		Limits: detector.Limits{
			MaxFiles:        cfg.Scan.MaxFiles,
			MaxBytesPerFile: cfg.Scan.MaxBytesPerFile,
			TimeoutMs:       cfg.Scan.TimeoutMs,
		},
	}
	if fastScan {
		opts.ScanMode = detector.ScanModeFast
	}
	if maxDepth > 0 {
		opts.MaxDepth = maxDepth
	}
	if maxFiles > 0 {
		opts.Limits.MaxFiles = maxFiles
	}
	if maxBytes > 0 {
		opts.Limits.MaxBytesPerFile = maxBytes
	}
	if timeoutMs > 0 {
		opts.Limits.TimeoutMs = timeoutMs
	}

	return reg, opts
}
