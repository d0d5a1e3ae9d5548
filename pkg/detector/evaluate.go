package detector

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"

	"stackscan/pkg/registry"
)

// evaluator resolves individual indicators against one workspace. Evaluation
// is exploratory: missing files, unreadable content, and malformed documents
// all mean "no evidence", never an error.
type evaluator struct {
	ws  *workspaceFS
	idx *treeIndex
	// roots are the candidate prefixes for non root-relative path lookups:
	// "" (the workspace root) plus the stack's searchRoots.
	roots []string
}

func newEvaluator(ws *workspaceFS, idx *treeIndex, searchRoots []string) *evaluator {
	roots := make([]string, 0, len(searchRoots)+1)
	roots = append(roots, "")
	roots = append(roots, searchRoots...)
	return &evaluator{ws: ws, idx: idx, roots: roots}
}

// cheapKind reports whether the kind is evaluated in fast scans.
func cheapKind(k registry.IndicatorKind) bool {
	return k == registry.KindFileExists || k == registry.KindDirExists
}

// lookupRoots returns the prefixes to try for a path-based indicator.
// Root-relative indicators are pinned to the workspace root; everything
// else is also tried under the stack's searchRoots.
func (e *evaluator) lookupRoots(rootRelative bool) []string {
	if rootRelative {
		return e.roots[:1]
	}
	return e.roots
}

// evaluate returns zero or one evidence records for the indicator. The
// slice form leaves room for multi-evidence kinds later.
func (e *evaluator) evaluate(ind registry.Indicator) []IndicatorEvidence {
	switch i := ind.(type) {
	case registry.FileExists:
		for _, root := range e.lookupRoots(i.RootRelative) {
			rel := path.Join(root, i.Path)
			if e.ws.hasFile(rel) {
				return []IndicatorEvidence{{
					Kind:   i.Kind(),
					Weight: i.Weight(),
					Detail: i.Describe(),
					Path:   rel,
				}}
			}
		}
		return nil

	case registry.DirExists:
		for _, root := range e.lookupRoots(i.RootRelative) {
			rel := path.Join(root, i.Path)
			if e.ws.hasDir(rel) {
				return []IndicatorEvidence{{
					Kind:   i.Kind(),
					Weight: i.Weight(),
					Detail: i.Describe(),
					Path:   rel,
				}}
			}
		}
		return nil

	case registry.FilePattern:
		if e.idx == nil {
			return nil
		}
		var matches []string
		for _, p := range e.idx.paths {
			ok, err := doublestar.Match(i.Pattern, p)
			if err != nil || !ok {
				continue
			}
			matches = append(matches, p)
			if len(matches) >= i.MaxMatches {
				break
			}
		}
		if len(matches) == 0 {
			return nil
		}
		// Weight counts once no matter how many paths matched.
		return []IndicatorEvidence{{
			Kind:    i.Kind(),
			Weight:  i.Weight(),
			Detail:  i.Describe(),
			Pattern: i.Pattern,
			Matches: matches,
		}}

	case registry.FileContains:
		for _, root := range e.lookupRoots(i.RootRelative) {
			rel := path.Join(root, i.Path)
			if !e.ws.hasFile(rel) {
				continue
			}
			content := e.ws.readFile(rel)
			if content == nil || !i.Regexp().Match(content) {
				continue
			}
			return []IndicatorEvidence{{
				Kind:    i.Kind(),
				Weight:  i.Weight(),
				Detail:  i.Describe(),
				Path:    rel,
				Pattern: i.Pattern,
			}}
		}
		return nil

	case registry.PathMatches:
		if e.idx == nil {
			return nil
		}
		for _, p := range e.idx.paths {
			if i.Regexp().MatchString(p) {
				return []IndicatorEvidence{{
					Kind:    i.Kind(),
					Weight:  i.Weight(),
					Detail:  i.Describe(),
					Path:    p,
					Pattern: i.Pattern,
				}}
			}
		}
		return nil

	case registry.JSONField:
		for _, root := range e.lookupRoots(i.RootRelative) {
			rel := path.Join(root, i.Path)
			content := e.ws.readFile(rel)
			if content == nil {
				continue
			}
			result := gjson.GetBytes(content, i.Field)
			if !result.Exists() || !expectMatches(i.Expect, result.String()) {
				continue
			}
			return []IndicatorEvidence{{
				Kind:   i.Kind(),
				Weight: i.Weight(),
				Detail: i.Describe(),
				Path:   rel,
				Field:  i.Field,
				Value:  result.String(),
			}}
		}
		return nil

	case registry.TOMLField:
		for _, root := range e.lookupRoots(i.RootRelative) {
			rel := path.Join(root, i.Path)
			content := e.ws.readFile(rel)
			if content == nil {
				continue
			}
			value, ok := tomlLookup(content, i.Field)
			if !ok || !expectMatches(i.Expect, value) {
				continue
			}
			return []IndicatorEvidence{{
				Kind:   i.Kind(),
				Weight: i.Weight(),
				Detail: i.Describe(),
				Path:   rel,
				Field:  i.Field,
				Value:  value,
			}}
		}
		return nil
	}

	return nil
}

// expectMatches implements the expected-value rule: an empty expectation
// means presence is enough, otherwise the actual value (string form) must
// equal one of the expected values.
func expectMatches(expect []string, actual string) bool {
	if len(expect) == 0 {
		return true
	}
	for _, want := range expect {
		if actual == want {
			return true
		}
	}
	return false
}

// tomlLookup navigates a dotted field path through a parsed TOML document.
// Malformed documents and missing segments both report no value.
func tomlLookup(content []byte, field string) (string, bool) {
	var doc map[string]any
	if err := toml.Unmarshal(content, &doc); err != nil {
		return "", false
	}

	var current any = doc
	start := 0
	for start <= len(field) {
		end := start
		for end < len(field) && field[end] != '.' {
			end++
		}
		seg := field[start:end]
		if seg == "" {
			return "", false
		}
		table, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = table[seg]
		if !ok {
			return "", false
		}
		start = end + 1
	}

	switch v := current.(type) {
	case string:
		return v, true
	case map[string]any, []any:
		// Table or array presence matches; the value form is not meaningful
		// for equality checks.
		return "", true
	default:
		return fmt.Sprint(v), true
	}
}
