package detector

import (
	"sort"

	"stackscan/pkg/registry"
)

// IndicatorEvidence records one satisfied indicator: the kind that fired,
// the weight it contributed, and enough metadata to explain the match.
type IndicatorEvidence struct {
	Kind    registry.IndicatorKind `json:"kind"`
	Weight  float64                `json:"weight"`
	Detail  string                 `json:"detail"`
	Path    string                 `json:"path,omitempty"`
	Pattern string                 `json:"pattern,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Value   string                 `json:"value,omitempty"`
	// Matches lists the paths behind a pattern match, capped by the
	// indicator's maxMatches.
	Matches []string `json:"matches,omitempty"`
}

// DetectedStack is a stack whose score met its threshold and survived
// conflict resolution.
type DetectedStack struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"displayName"`
	Category    registry.Category   `json:"category"`
	Score       float64             `json:"score"`
	Confidence  float64             `json:"confidence"`
	Evidence    []IndicatorEvidence `json:"evidence"`
	// ResolvedDependencies is the subset of dependsOn ids that are also in
	// the final detected set.
	ResolvedDependencies []string `json:"resolvedDependencies,omitempty"`
}

// ConsideredStack is a stack that produced evidence but fell below its
// threshold, or was demoted by conflict resolution. Retained for diagnostics.
type ConsideredStack struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"displayName"`
	Category    registry.Category   `json:"category"`
	Score       float64             `json:"score"`
	Confidence  float64             `json:"confidence"`
	Evidence    []IndicatorEvidence `json:"evidence"`
	Reason      string              `json:"reason,omitempty"`
}

// Summary groups the detected stacks for quick consumption.
type Summary struct {
	// DominantLanguages ranks language-category stacks by confidence.
	DominantLanguages []string `json:"dominantLanguages,omitempty"`
	// PrimaryByCategory picks, per category, the stacks with the highest
	// priority (falling back to confidence); ties are retained.
	PrimaryByCategory map[registry.Category][]string `json:"primaryByCategory,omitempty"`
}

// WorkspaceStackDetectionResult is the outcome of one DetectStacks call.
// Complete is false when a timeout or the file budget cut evaluation short;
// partial results are still ordered and internally consistent.
type WorkspaceStackDetectionResult struct {
	WorkspaceID      string            `json:"workspaceId"`
	RootPath         string            `json:"rootPath"`
	ScanMode         ScanMode          `json:"scanMode"`
	DetectedStacks   []DetectedStack   `json:"detectedStacks"`
	ConsideredStacks []ConsideredStack `json:"consideredStacks,omitempty"`
	Summary          *Summary          `json:"summary,omitempty"`
	Complete         bool              `json:"complete"`
	StacksEvaluated  int               `json:"stacksEvaluated"`
	FilesIndexed     int               `json:"filesIndexed"`
}

func synthesizeSummary(detected []DetectedStack, reg *registry.Registry) *Summary {
	if len(detected) == 0 {
		return nil
	}

	s := &Summary{PrimaryByCategory: make(map[registry.Category][]string)}

	// detected is already ordered by confidence, so language order falls out.
	for _, d := range detected {
		if d.Category == registry.CategoryLanguage {
			s.DominantLanguages = append(s.DominantLanguages, d.ID)
		}
	}

	byCategory := make(map[registry.Category][]DetectedStack)
	for _, d := range detected {
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}

	for cat, stacks := range byCategory {
		maxPriority := 0
		for _, d := range stacks {
			if p := stackPriority(reg, d.ID); p > maxPriority {
				maxPriority = p
			}
		}
		var top []DetectedStack
		for _, d := range stacks {
			if stackPriority(reg, d.ID) == maxPriority {
				top = append(top, d)
			}
		}
		// Same priority: fall back to confidence, keeping equal-confidence
		// ties as a list.
		best := top[0].Confidence
		for _, d := range top[1:] {
			if d.Confidence > best {
				best = d.Confidence
			}
		}
		var ids []string
		for _, d := range top {
			if d.Confidence == best {
				ids = append(ids, d.ID)
			}
		}
		sort.Strings(ids)
		s.PrimaryByCategory[cat] = ids
	}

	return s
}

func stackPriority(reg *registry.Registry, id string) int {
	if def, ok := reg.Get(id); ok {
		return def.Detection.Priority
	}
	return 0
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
