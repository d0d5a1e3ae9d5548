package detector

import (
	"fmt"
	"time"
)

// ScanMode selects the cost/thoroughness trade-off for one detection run.
type ScanMode string

const (
	// ScanModeFast evaluates only file/directory existence indicators at
	// shallow depth. Content and structured-field indicators are treated as
	// producing no evidence.
	ScanModeFast ScanMode = "fast"
	// ScanModeThorough evaluates every indicator kind.
	ScanModeThorough ScanMode = "thorough"
)

// Limits bounds filesystem cost for a whole detection call, shared across
// all stacks and indicators.
type Limits struct {
	// MaxFiles caps total tree enumeration for pattern and path indicators.
	MaxFiles int `json:"maxFiles,omitempty"`
	// MaxBytesPerFile truncates every content read.
	MaxBytesPerFile int64 `json:"maxBytesPerFile,omitempty"`
	// TimeoutMs is the wall-clock budget; on expiry the best partial result
	// is returned with Complete=false.
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

// Options controls a single DetectStacks call.
type Options struct {
	// IncludeStacks restricts evaluation to these ids. When non-empty,
	// ExcludeStacks is ignored entirely: include wins.
	IncludeStacks []string `json:"includeStacks,omitempty"`
	// ExcludeStacks removes ids from evaluation.
	ExcludeStacks []string `json:"excludeStacks,omitempty"`
	// MaxDepth bounds traversal depth for pattern/path indicators. 0 picks
	// the per-mode default.
	MaxDepth int      `json:"maxDepth,omitempty"`
	ScanMode ScanMode `json:"scanMode,omitempty"`
	Limits   Limits   `json:"limits,omitempty"`
}

const (
	defaultMaxFiles      = 20000
	defaultMaxBytes      = 512 * 1024
	defaultTimeout       = 10 * time.Second
	defaultDepthFast     = 3
	defaultDepthThorough = 8
)

// normalized fills defaults and validates the scan mode.
func (o Options) normalized() (Options, error) {
	switch o.ScanMode {
	case "":
		o.ScanMode = ScanModeThorough
	case ScanModeFast, ScanModeThorough:
	default:
		return o, fmt.Errorf("unknown scan mode %q", o.ScanMode)
	}

	if o.MaxDepth <= 0 {
		if o.ScanMode == ScanModeFast {
			o.MaxDepth = defaultDepthFast
		} else {
			o.MaxDepth = defaultDepthThorough
		}
	}
	if o.Limits.MaxFiles <= 0 {
		o.Limits.MaxFiles = defaultMaxFiles
	}
	if o.Limits.MaxBytesPerFile <= 0 {
		o.Limits.MaxBytesPerFile = defaultMaxBytes
	}
	if o.Limits.TimeoutMs <= 0 {
		o.Limits.TimeoutMs = int(defaultTimeout / time.Millisecond)
	}
	return o, nil
}

func (o Options) timeout() time.Duration {
	return time.Duration(o.Limits.TimeoutMs) * time.Millisecond
}

// selects reports whether the id survives the include/exclude filters.
func (o Options) selects(id string) bool {
	if len(o.IncludeStacks) > 0 {
		for _, inc := range o.IncludeStacks {
			if inc == id {
				return true
			}
		}
		return false
	}
	for _, exc := range o.ExcludeStacks {
		if exc == id {
			return false
		}
	}
	return true
}
