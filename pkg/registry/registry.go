// Package registry holds the catalog of detectable technology stacks: stack
// definitions, their evidence indicators, and the JSON loader that validates
// a catalog document before detection ever runs. A loaded Registry is
// immutable and is passed explicitly into every detection call.
package registry

import (
	"fmt"
)

// Category classifies a stack definition.
type Category string

const (
	CategoryLanguage  Category = "language"
	CategoryFramework Category = "framework"
	CategoryRuntime   Category = "runtime"
	CategoryTooling   Category = "tooling"
)

func validCategory(c Category) bool {
	switch c {
	case CategoryLanguage, CategoryFramework, CategoryRuntime, CategoryTooling:
		return true
	}
	return false
}

// DetectionConfig holds the scoring knobs for one stack.
type DetectionConfig struct {
	// MinScore is the detection threshold.
	MinScore float64 `json:"minScore"`
	// MaxScore normalizes score into confidence. When 0 it is derived as
	// the sum of every indicator weight in the set.
	MaxScore float64 `json:"maxScore,omitempty"`
	// MaxIndicatorsCounted caps how many satisfied indicators contribute to
	// the score (highest weights first). 0 means uncapped.
	MaxIndicatorsCounted int `json:"maxIndicatorsCounted,omitempty"`
	// Priority breaks conflict ties and ranks category primaries.
	Priority int `json:"priority,omitempty"`
}

// IndicatorSet groups a stack's evidence rules by role.
type IndicatorSet struct {
	// RequiredAny is a hard gate: when non-empty, at least one must produce
	// evidence or the stack is excluded outright.
	RequiredAny IndicatorList `json:"requiredAny,omitempty"`
	// RequiredAll is a hard gate: every indicator must produce evidence.
	RequiredAll IndicatorList `json:"requiredAll,omitempty"`
	// Optional indicators contribute to the score only.
	Optional IndicatorList `json:"optional,omitempty"`
	// ConflictsWith lists stack ids competing for the same claim.
	ConflictsWith []string `json:"conflictsWith,omitempty"`
}

// Empty reports whether the set carries no indicators at all.
func (s IndicatorSet) Empty() bool {
	return len(s.RequiredAny)+len(s.RequiredAll)+len(s.Optional) == 0
}

// All returns every indicator in gate-then-optional order.
func (s IndicatorSet) All() []Indicator {
	out := make([]Indicator, 0, len(s.RequiredAny)+len(s.RequiredAll)+len(s.Optional))
	out = append(out, s.RequiredAny...)
	out = append(out, s.RequiredAll...)
	out = append(out, s.Optional...)
	return out
}

// StackDefinition describes one detectable stack. Identity is ID.
type StackDefinition struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Category    Category        `json:"category"`
	DependsOn   []string        `json:"dependsOn,omitempty"`
	SearchRoots []string        `json:"searchRoots,omitempty"`
	Indicators  IndicatorSet    `json:"indicators"`
	Detection   DetectionConfig `json:"detection"`
}

// MaxScore returns the explicit maximum or the derived sum of all weights.
func (d *StackDefinition) MaxScore() float64 {
	if d.Detection.MaxScore > 0 {
		return d.Detection.MaxScore
	}
	var sum float64
	for _, ind := range d.Indicators.All() {
		sum += ind.Weight()
	}
	return sum
}

// DefinitionError reports an invalid stack definition in a catalog document.
type DefinitionError struct {
	StackID string
	Reason  string
}

func (e *DefinitionError) Error() string {
	if e.StackID == "" {
		return "invalid registry: " + e.Reason
	}
	return fmt.Sprintf("invalid stack definition %q: %s", e.StackID, e.Reason)
}

// Registry is an immutable stack catalog. Construct with New, Parse, or
// LoadFile; never mutate after construction.
type Registry struct {
	version string
	stacks  []StackDefinition
	byID    map[string]*StackDefinition
}

// New validates the definitions and builds a Registry. Validation is strict:
// a malformed definition that would silently never fire is worse than a load
// error.
func New(version string, defs []StackDefinition) (*Registry, error) {
	byID := make(map[string]*StackDefinition, len(defs))
	stacks := make([]StackDefinition, len(defs))
	copy(stacks, defs)

	for n := range stacks {
		def := &stacks[n]
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, dup := byID[def.ID]; dup {
			return nil, &DefinitionError{StackID: def.ID, Reason: "duplicate stack id"}
		}
		byID[def.ID] = def
	}

	// Cross-stack references must resolve inside the catalog.
	for n := range stacks {
		def := &stacks[n]
		for _, dep := range def.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, &DefinitionError{StackID: def.ID, Reason: fmt.Sprintf("dependsOn references unknown stack %q", dep)}
			}
		}
		for _, c := range def.Indicators.ConflictsWith {
			if _, ok := byID[c]; !ok {
				return nil, &DefinitionError{StackID: def.ID, Reason: fmt.Sprintf("conflictsWith references unknown stack %q", c)}
			}
		}
	}

	return &Registry{version: version, stacks: stacks, byID: byID}, nil
}

func validateDefinition(def *StackDefinition) error {
	if def.ID == "" {
		return &DefinitionError{Reason: "stack id is required"}
	}
	if def.DisplayName == "" {
		return &DefinitionError{StackID: def.ID, Reason: "displayName is required"}
	}
	if !validCategory(def.Category) {
		return &DefinitionError{StackID: def.ID, Reason: fmt.Sprintf("unknown category %q", def.Category)}
	}
	if def.Indicators.Empty() {
		return &DefinitionError{StackID: def.ID, Reason: "indicator set is empty"}
	}
	if def.Detection.MinScore < 0 {
		return &DefinitionError{StackID: def.ID, Reason: "minScore must be non-negative"}
	}
	if def.Detection.MaxScore < 0 {
		return &DefinitionError{StackID: def.ID, Reason: "maxScore must be non-negative"}
	}
	if def.Detection.MaxIndicatorsCounted < 0 {
		return &DefinitionError{StackID: def.ID, Reason: "maxIndicatorsCounted must be non-negative"}
	}
	for _, ind := range def.Indicators.All() {
		if ind.Weight() < 0 {
			return &DefinitionError{StackID: def.ID, Reason: "indicator weight must be non-negative"}
		}
	}
	return nil
}

// Version returns the catalog document version.
func (r *Registry) Version() string { return r.version }

// Len returns the number of stack definitions.
func (r *Registry) Len() int { return len(r.stacks) }

// Stacks returns the definitions in document order. Callers must not mutate
// the returned slice.
func (r *Registry) Stacks() []StackDefinition { return r.stacks }

// Get returns the definition for id, if present.
func (r *Registry) Get(id string) (*StackDefinition, bool) {
	def, ok := r.byID[id]
	return def, ok
}
