// Package detector implements the stack detection engine: it evaluates each
// registry stack's indicators against a workspace, applies hard gates and
// weighted scoring, normalizes scores into confidence values, resolves
// cross-stack conflicts and dependencies, and synthesizes a summary.
//
// Detection is a pure function of (registry, workspace state, options):
// rerunning against the same tree yields the same result. Scores and
// evidence are created fresh per call; nothing is cached across calls.
package detector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stackscan/pkg/registry"
)

// ErrInvalidWorkspace rejects detection before any evaluation begins.
var ErrInvalidWorkspace = errors.New("invalid workspace root")

// maxConcurrentStacks bounds parallel stack evaluation. Evaluation is
// I/O-bound and stacks are independent, so completion order cannot affect
// scores.
var maxConcurrentStacks = runtime.NumCPU()

// candidate is one stack's fully evaluated state before resolution.
type candidate struct {
	def       *registry.StackDefinition
	score     float64
	evidence  []IndicatorEvidence
	gated     bool // a hard gate failed: absent from all lists
	evaluated bool // finished before the deadline
}

// DetectStacks classifies the workspace at root against every stack in reg,
// honoring the option filters and resource limits. Configuration and caller
// misuse surface as errors; evidence misses and resource exhaustion do not —
// the latter yields a partial result with Complete=false.
func DetectStacks(ctx context.Context, workspaceID, root string, reg *registry.Registry, opts Options) (*WorkspaceStackDetectionResult, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}
	if reg == nil || reg.Len() == 0 {
		return nil, errors.New("stack registry is empty")
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWorkspace, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidWorkspace, root)
	}

	if workspaceID == "" {
		workspaceID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	defs := selectStacks(reg, opts)
	ws := newWorkspaceFS(root, opts.Limits.MaxBytesPerFile)
	budget := newScanBudget(opts.Limits.MaxFiles)

	// Pattern and path indicators share a single tree enumeration; fast
	// scans never need it.
	var idx *treeIndex
	indexNeeded := opts.ScanMode == ScanModeThorough && anyNeedsIndex(defs)
	if indexNeeded {
		idx = buildTreeIndex(ctx, root, opts.MaxDepth, budget)
	}

	cands := make([]candidate, len(defs))
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentStacks)
	for n := range defs {
		g.Go(func() error {
			cands[n] = evaluateStack(ctx, defs[n], ws, idx, opts.ScanMode)
			return nil
		})
	}
	_ = g.Wait()

	result := resolve(cands, reg)
	result.WorkspaceID = workspaceID
	result.RootPath = root
	result.ScanMode = opts.ScanMode
	result.FilesIndexed = budget.spent()

	result.Complete = true
	if indexNeeded && idx.truncated {
		result.Complete = false
	}
	for _, c := range cands {
		if c.evaluated {
			result.StacksEvaluated++
		} else {
			result.Complete = false
		}
	}

	return result, nil
}

func selectStacks(reg *registry.Registry, opts Options) []*registry.StackDefinition {
	stacks := reg.Stacks()
	defs := make([]*registry.StackDefinition, 0, len(stacks))
	for n := range stacks {
		if opts.selects(stacks[n].ID) {
			defs = append(defs, &stacks[n])
		}
	}
	return defs
}

func anyNeedsIndex(defs []*registry.StackDefinition) bool {
	for _, def := range defs {
		for _, ind := range def.Indicators.All() {
			switch ind.Kind() {
			case registry.KindFilePattern, registry.KindPathMatches:
				return true
			}
		}
	}
	return false
}

// evaluateStack runs the per-stack algorithm: hard gates first, then scoring
// over every indicator that produced evidence. Fast scans filter the set to
// cheap kinds before gating, so a gate made of expensive indicators simply
// gates nothing rather than excluding the stack.
func evaluateStack(ctx context.Context, def *registry.StackDefinition, ws *workspaceFS, idx *treeIndex, mode ScanMode) candidate {
	c := candidate{def: def}
	if ctx.Err() != nil {
		return c
	}

	ev := newEvaluator(ws, idx, def.SearchRoots)

	requiredAny := modeFilter(def.Indicators.RequiredAny, mode)
	requiredAll := modeFilter(def.Indicators.RequiredAll, mode)
	optional := modeFilter(def.Indicators.Optional, mode)

	type satisfied struct {
		weight   float64
		evidence IndicatorEvidence
	}
	var hits []satisfied
	record := func(evs []IndicatorEvidence) bool {
		if len(evs) == 0 {
			return false
		}
		for _, e := range evs {
			hits = append(hits, satisfied{weight: e.Weight, evidence: e})
		}
		return true
	}

	if len(requiredAny) > 0 {
		anyFired := false
		for _, ind := range requiredAny {
			if record(ev.evaluate(ind)) {
				anyFired = true
			}
		}
		if !anyFired {
			c.gated = true
			c.evaluated = ctx.Err() == nil
			return c
		}
	}

	for _, ind := range requiredAll {
		if !record(ev.evaluate(ind)) {
			c.gated = true
			c.evaluated = ctx.Err() == nil
			return c
		}
	}

	for _, ind := range optional {
		record(ev.evaluate(ind))
	}

	// A stack evaluated partway into the deadline may have missed evidence;
	// drop it rather than report a misleading score.
	if ctx.Err() != nil {
		return candidate{def: def}
	}

	// Highest weights count first when the counted-indicator cap applies.
	if limit := def.Detection.MaxIndicatorsCounted; limit > 0 && len(hits) > limit {
		sort.SliceStable(hits, func(a, b int) bool {
			return hits[a].weight > hits[b].weight
		})
		hits = hits[:limit]
	}

	for _, h := range hits {
		c.score += h.weight
		c.evidence = append(c.evidence, h.evidence)
	}
	c.evaluated = true
	return c
}

// modeFilter drops indicator kinds the scan mode does not evaluate.
func modeFilter(inds registry.IndicatorList, mode ScanMode) []registry.Indicator {
	if mode == ScanModeThorough {
		return inds
	}
	out := make([]registry.Indicator, 0, len(inds))
	for _, ind := range inds {
		if cheapKind(ind.Kind()) {
			out = append(out, ind)
		}
	}
	return out
}

// resolve turns the fully scored candidate set into the final detected and
// considered lists. All ordering here is deterministic: score descending,
// then priority descending, then id ascending.
func resolve(cands []candidate, reg *registry.Registry) *WorkspaceStackDetectionResult {
	result := &WorkspaceStackDetectionResult{
		DetectedStacks:   []DetectedStack{},
		ConsideredStacks: []ConsideredStack{},
	}

	var detected []candidate
	for _, c := range cands {
		if !c.evaluated || c.gated || len(c.evidence) == 0 {
			continue
		}
		if c.score >= c.def.Detection.MinScore {
			detected = append(detected, c)
		} else {
			result.ConsideredStacks = append(result.ConsideredStacks, consideredFrom(c, "below threshold"))
		}
	}

	rank := func(a, b candidate) bool {
		if a.score != b.score {
			return a.score > b.score
		}
		if a.def.Detection.Priority != b.def.Detection.Priority {
			return a.def.Detection.Priority > b.def.Detection.Priority
		}
		return a.def.ID < b.def.ID
	}
	sort.SliceStable(detected, func(a, b int) bool { return rank(detected[a], detected[b]) })

	// Conflict resolution: walking candidates best-first, a candidate loses
	// when it conflicts with an already surviving stack.
	surviving := make(map[string]bool)
	var winners []candidate
	for _, c := range detected {
		loser := ""
		for _, other := range conflictIDs(c.def, reg) {
			if surviving[other] {
				loser = other
				break
			}
		}
		if loser != "" {
			result.ConsideredStacks = append(result.ConsideredStacks, consideredFrom(c, "conflicts with "+loser))
			continue
		}
		surviving[c.def.ID] = true
		winners = append(winners, c)
	}

	for _, c := range winners {
		d := DetectedStack{
			ID:          c.def.ID,
			DisplayName: c.def.DisplayName,
			Category:    c.def.Category,
			Score:       c.score,
			Confidence:  confidence(c.score, c.def.MaxScore()),
			Evidence:    c.evidence,
		}
		for _, dep := range c.def.DependsOn {
			if surviving[dep] {
				d.ResolvedDependencies = append(d.ResolvedDependencies, dep)
			}
		}
		sort.Strings(d.ResolvedDependencies)
		result.DetectedStacks = append(result.DetectedStacks, d)
	}

	sort.SliceStable(result.DetectedStacks, func(a, b int) bool {
		if result.DetectedStacks[a].Confidence != result.DetectedStacks[b].Confidence {
			return result.DetectedStacks[a].Confidence > result.DetectedStacks[b].Confidence
		}
		return result.DetectedStacks[a].ID < result.DetectedStacks[b].ID
	})
	sort.SliceStable(result.ConsideredStacks, func(a, b int) bool {
		if result.ConsideredStacks[a].Confidence != result.ConsideredStacks[b].Confidence {
			return result.ConsideredStacks[a].Confidence > result.ConsideredStacks[b].Confidence
		}
		return result.ConsideredStacks[a].ID < result.ConsideredStacks[b].ID
	})

	result.Summary = synthesizeSummary(result.DetectedStacks, reg)
	return result
}

// conflictIDs returns the symmetric conflict set for def: ids it lists plus
// ids that list it.
func conflictIDs(def *registry.StackDefinition, reg *registry.Registry) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range def.Indicators.ConflictsWith {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, other := range reg.Stacks() {
		if other.ID == def.ID || seen[other.ID] {
			continue
		}
		for _, id := range other.Indicators.ConflictsWith {
			if id == def.ID {
				seen[other.ID] = true
				out = append(out, other.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func consideredFrom(c candidate, reason string) ConsideredStack {
	return ConsideredStack{
		ID:          c.def.ID,
		DisplayName: c.def.DisplayName,
		Category:    c.def.Category,
		Score:       c.score,
		Confidence:  confidence(c.score, c.def.MaxScore()),
		Evidence:    c.evidence,
		Reason:      reason,
	}
}

// confidence normalizes score to [0,1], clipping when the score exceeds an
// explicit maximum. A zero maximum yields zero confidence.
func confidence(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return clamp(score/maxScore, 0, 1)
}
