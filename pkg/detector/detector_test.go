package detector

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stackscan/pkg/registry"
)

// writeTree materializes a workspace fixture. Keys ending in "/" create bare
// directories; everything else is a file with the given content.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func mustRegistry(t *testing.T, doc string) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("test registry is invalid: %v", err)
	}
	return reg
}

func findDetected(res *WorkspaceStackDetectionResult, id string) (DetectedStack, bool) {
	for _, d := range res.DetectedStacks {
		if d.ID == id {
			return d, true
		}
	}
	return DetectedStack{}, false
}

func findConsidered(res *WorkspaceStackDetectionResult, id string) (ConsideredStack, bool) {
	for _, c := range res.ConsideredStacks {
		if c.ID == id {
			return c, true
		}
	}
	return ConsideredStack{}, false
}

func TestDetectNodeWorkspaceFast(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json": `{"name":"test","dependencies":{}}`,
	})

	res, err := DetectStacks(context.Background(), "ws-1", root, registry.Builtin(), Options{ScanMode: ScanModeFast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	node, ok := findDetected(res, "nodejs")
	if !ok {
		t.Fatalf("expected nodejs in detected stacks, got %+v", res.DetectedStacks)
	}
	if node.Confidence <= 0.4 {
		t.Errorf("expected nodejs confidence > 0.4, got %v", node.Confidence)
	}
	if len(node.Evidence) == 0 {
		t.Error("expected evidence for nodejs")
	}
	if !res.Complete {
		t.Error("expected a complete result")
	}
	if res.WorkspaceID != "ws-1" {
		t.Errorf("workspace id not preserved: %q", res.WorkspaceID)
	}
	if res.Summary == nil {
		t.Fatal("expected a summary")
	}
	if got := res.Summary.PrimaryByCategory[registry.CategoryRuntime]; len(got) != 1 || got[0] != "nodejs" {
		t.Errorf("expected nodejs as runtime primary, got %v", got)
	}
}

func TestDetectTypeScriptAndNodeFast(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":  `{"name":"test"}`,
		"tsconfig.json": `{"compilerOptions":{}}`,
	})

	res, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{ScanMode: ScanModeFast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ts, ok := findDetected(res, "typescript")
	if !ok {
		t.Fatal("expected typescript to be detected")
	}
	if _, ok := findDetected(res, "nodejs"); !ok {
		t.Fatal("expected nodejs to be detected")
	}
	if ts.Confidence <= 0.5 {
		t.Errorf("expected typescript confidence > 0.5, got %v", ts.Confidence)
	}
	// Output is ordered by confidence, highest first.
	if res.DetectedStacks[0].ID != "typescript" {
		t.Errorf("expected typescript first, got %s", res.DetectedStacks[0].ID)
	}
	if res.WorkspaceID == "" {
		t.Error("expected a generated workspace id")
	}
}

func TestDetectRustThorough(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Cargo.toml": "[package]\nname = \"test\"\nversion = \"0.1.0\"\n",
	})

	res, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rust, ok := findDetected(res, "rust")
	if !ok {
		t.Fatal("expected rust to be detected")
	}
	if rust.Confidence <= 0.5 {
		t.Errorf("expected rust confidence > 0.5, got %v", rust.Confidence)
	}
}

func TestDetectEmptyWorkspace(t *testing.T) {
	res, err := DetectStacks(context.Background(), "", t.TempDir(), registry.Builtin(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DetectedStacks) != 0 {
		t.Errorf("expected no detected stacks, got %+v", res.DetectedStacks)
	}
	if len(res.ConsideredStacks) != 0 {
		t.Errorf("expected no considered stacks, got %+v", res.ConsideredStacks)
	}
	if !res.Complete {
		t.Error("expected a complete result")
	}
}

func TestMoreEvidenceRaisesConfidence(t *testing.T) {
	bare := writeTree(t, map[string]string{
		"package.json": `{"name":"test"}`,
	})
	locked := writeTree(t, map[string]string{
		"package.json":      `{"name":"test"}`,
		"package-lock.json": `{}`,
	})

	opts := Options{ScanMode: ScanModeFast}
	bareRes, err := DetectStacks(context.Background(), "", bare, registry.Builtin(), opts)
	if err != nil {
		t.Fatal(err)
	}
	lockedRes, err := DetectStacks(context.Background(), "", locked, registry.Builtin(), opts)
	if err != nil {
		t.Fatal(err)
	}

	bareNode, _ := findDetected(bareRes, "nodejs")
	lockedNode, _ := findDetected(lockedRes, "nodejs")
	if lockedNode.Confidence <= bareNode.Confidence {
		t.Errorf("expected lockfile to raise confidence: %v vs %v", lockedNode.Confidence, bareNode.Confidence)
	}
}

func TestHardGateExcludesStackOutright(t *testing.T) {
	// requiredAny misses even though optional evidence is present: the stack
	// must appear in neither list.
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "gated", "displayName": "Gated", "category": "tooling",
		 "indicators": {
			"requiredAny": [{"kind": "file-exists", "path": "missing.lock", "weight": 3}],
			"optional": [{"kind": "file-exists", "path": "present.txt", "weight": 5}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{"present.txt": "x"})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "gated"); ok {
		t.Error("gated stack must not be detected")
	}
	if _, ok := findConsidered(res, "gated"); ok {
		t.Error("gated stack must not be considered either")
	}
}

func TestRequiredAllGate(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "strict", "displayName": "Strict", "category": "tooling",
		 "indicators": {
			"requiredAll": [
				{"kind": "file-exists", "path": "a.txt", "weight": 2},
				{"kind": "file-exists", "path": "b.txt", "weight": 2}
			]
		 },
		 "detection": {"minScore": 1}}
	]}`)

	partial := writeTree(t, map[string]string{"a.txt": "x"})
	res, err := DetectStacks(context.Background(), "", partial, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DetectedStacks)+len(res.ConsideredStacks) != 0 {
		t.Errorf("stack with a failed requiredAll must be absent, got %+v %+v", res.DetectedStacks, res.ConsideredStacks)
	}

	full := writeTree(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	res, err = DetectStacks(context.Background(), "", full, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "strict"); !ok {
		t.Error("expected strict to be detected when all gates pass")
	}
}

func TestBelowThresholdGoesToConsidered(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "weak", "displayName": "Weak", "category": "tooling",
		 "indicators": {
			"optional": [{"kind": "file-exists", "path": "hint.txt", "weight": 1}]
		 },
		 "detection": {"minScore": 5, "maxScore": 10}}
	]}`)
	root := writeTree(t, map[string]string{"hint.txt": "x"})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "weak"); ok {
		t.Error("weak must not meet the threshold")
	}
	c, ok := findConsidered(res, "weak")
	if !ok {
		t.Fatal("expected weak in considered stacks")
	}
	if c.Reason != "below threshold" {
		t.Errorf("unexpected reason %q", c.Reason)
	}
	if c.Score != 1 || c.Confidence != 0.1 {
		t.Errorf("unexpected score/confidence: %v/%v", c.Score, c.Confidence)
	}
}

func TestConflictTieBreaksOnID(t *testing.T) {
	// Equal score, equal priority: the lexicographically smaller id survives.
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "beta", "displayName": "Beta", "category": "runtime",
		 "indicators": {
			"requiredAny": [{"kind": "file-exists", "path": "marker.txt", "weight": 3}],
			"conflictsWith": ["alpha"]
		 },
		 "detection": {"minScore": 1}},
		{"id": "alpha", "displayName": "Alpha", "category": "runtime",
		 "indicators": {
			"requiredAny": [{"kind": "file-exists", "path": "marker.txt", "weight": 3}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{"marker.txt": "x"})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "alpha"); !ok {
		t.Error("expected alpha to survive the conflict")
	}
	// Conflicts apply symmetrically even though only beta declares one.
	c, ok := findConsidered(res, "beta")
	if !ok {
		t.Fatal("expected beta to be demoted")
	}
	if c.Reason != "conflicts with alpha" {
		t.Errorf("unexpected reason %q", c.Reason)
	}
}

func TestConflictPrefersHigherScore(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "small", "displayName": "Small", "category": "runtime",
		 "indicators": {
			"requiredAny": [{"kind": "file-exists", "path": "marker.txt", "weight": 2}],
			"conflictsWith": ["big"]
		 },
		 "detection": {"minScore": 1}},
		{"id": "big", "displayName": "Big", "category": "runtime",
		 "indicators": {
			"requiredAny": [{"kind": "file-exists", "path": "marker.txt", "weight": 2}],
			"optional": [{"kind": "file-exists", "path": "extra.txt", "weight": 3}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{"marker.txt": "x", "extra.txt": "y"})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "big"); !ok {
		t.Error("expected big to win on score")
	}
	if _, ok := findConsidered(res, "small"); !ok {
		t.Error("expected small to be demoted")
	}
}

func TestFrameworkDependencyResolution(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json": `{"name":"app","dependencies":{"next":"14.0.0","react":"18.2.0"}}`,
	})

	res, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	next, ok := findDetected(res, "nextjs")
	if !ok {
		t.Fatal("expected nextjs to be detected")
	}
	if len(next.ResolvedDependencies) != 1 || next.ResolvedDependencies[0] != "nodejs" {
		t.Errorf("expected nextjs to resolve its nodejs dependency, got %v", next.ResolvedDependencies)
	}
	// react loses the conflict to the higher-priority nextjs.
	c, ok := findConsidered(res, "react")
	if !ok {
		t.Fatal("expected react to be demoted")
	}
	if c.Reason != "conflicts with nextjs" {
		t.Errorf("unexpected reason %q", c.Reason)
	}
	if got := res.Summary.PrimaryByCategory[registry.CategoryFramework]; len(got) != 1 || got[0] != "nextjs" {
		t.Errorf("expected nextjs as framework primary, got %v", got)
	}
}

func TestSummaryRanksDominantLanguagesByConfidence(t *testing.T) {
	// typescript scores 3/5, go scores 3/6: both detected, typescript ahead.
	root := writeTree(t, map[string]string{
		"tsconfig.json": `{}`,
		"go.mod":        "go 1.24\n",
	})

	res, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	ts, _ := findDetected(res, "typescript")
	gostack, _ := findDetected(res, "go")
	if ts.Confidence <= gostack.Confidence {
		t.Fatalf("fixture broken: expected typescript above go, got %v vs %v", ts.Confidence, gostack.Confidence)
	}
	if res.Summary == nil {
		t.Fatal("expected a summary")
	}
	want := []string{"typescript", "go"}
	got := res.Summary.DominantLanguages
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected dominant languages %v, got %v", want, got)
	}
}

func TestIncludeWinsOverExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":  `{"name":"test"}`,
		"tsconfig.json": `{}`,
	})

	res, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{
		IncludeStacks: []string{"nodejs"},
		ExcludeStacks: []string{"nodejs"},
		ScanMode:      ScanModeFast,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "nodejs"); !ok {
		t.Error("include filter must win over exclude")
	}
	if _, ok := findDetected(res, "typescript"); ok {
		t.Error("typescript is outside the include filter")
	}
}

func TestExcludeFilter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json": `{"name":"test"}`,
	})

	res, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{
		ExcludeStacks: []string{"nodejs"},
		ScanMode:      ScanModeFast,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(res, "nodejs"); ok {
		t.Error("excluded stack must not be evaluated")
	}
}

func TestFastScanSkipsContentIndicators(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "fastapi==0.110.0\nuvicorn\n",
	})

	thorough, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(thorough, "fastapi"); !ok {
		t.Error("thorough scan should detect fastapi from file content")
	}

	fast, err := DetectStacks(context.Background(), "", root, registry.Builtin(), Options{ScanMode: ScanModeFast})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(fast, "fastapi"); ok {
		t.Error("fast scan must not evaluate content indicators")
	}
	// python gates on plain file existence, so both modes see it.
	if _, ok := findDetected(fast, "python"); !ok {
		t.Error("fast scan should still detect python")
	}
}

func TestMaxIndicatorsCountedCapsScore(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "capped", "displayName": "Capped", "category": "tooling",
		 "indicators": {
			"optional": [
				{"kind": "file-exists", "path": "a.txt", "weight": 3},
				{"kind": "file-exists", "path": "b.txt", "weight": 2},
				{"kind": "file-exists", "path": "c.txt", "weight": 1}
			]
		 },
		 "detection": {"minScore": 1, "maxIndicatorsCounted": 2}}
	]}`)
	root := writeTree(t, map[string]string{"a.txt": "", "b.txt": "", "c.txt": ""})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	d, ok := findDetected(res, "capped")
	if !ok {
		t.Fatal("expected capped to be detected")
	}
	// The two highest weights count: 3 + 2.
	if d.Score != 5 {
		t.Errorf("expected score 5, got %v", d.Score)
	}
	if len(d.Evidence) != 2 {
		t.Errorf("expected 2 evidence records, got %d", len(d.Evidence))
	}
}

func TestConfidenceClampsAtOne(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "over", "displayName": "Over", "category": "tooling",
		 "indicators": {
			"optional": [
				{"kind": "file-exists", "path": "a.txt", "weight": 4},
				{"kind": "file-exists", "path": "b.txt", "weight": 4}
			]
		 },
		 "detection": {"minScore": 1, "maxScore": 2}}
	]}`)
	root := writeTree(t, map[string]string{"a.txt": "", "b.txt": ""})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	d, ok := findDetected(res, "over")
	if !ok {
		t.Fatal("expected over to be detected")
	}
	if d.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", d.Confidence)
	}
	if d.Score != 8 {
		t.Errorf("expected raw score 8, got %v", d.Score)
	}
}

func TestCanceledContextYieldsPartialResult(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json": `{"name":"test"}`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := DetectStacks(ctx, "", root, registry.Builtin(), Options{})
	if err != nil {
		t.Fatalf("expiry must not be an error: %v", err)
	}
	if res.Complete {
		t.Error("expected an incomplete result")
	}
	if res.StacksEvaluated != 0 {
		t.Errorf("expected no stacks evaluated, got %d", res.StacksEvaluated)
	}
	if len(res.DetectedStacks) != 0 {
		t.Errorf("partially evaluated stacks must be dropped, got %+v", res.DetectedStacks)
	}
}

func TestInvalidWorkspaceRoot(t *testing.T) {
	_, err := DetectStacks(context.Background(), "", filepath.Join(t.TempDir(), "nope"), registry.Builtin(), Options{})
	if !errors.Is(err, ErrInvalidWorkspace) {
		t.Errorf("expected ErrInvalidWorkspace for a missing root, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = DetectStacks(context.Background(), "", file, registry.Builtin(), Options{})
	if !errors.Is(err, ErrInvalidWorkspace) {
		t.Errorf("expected ErrInvalidWorkspace for a file root, got %v", err)
	}
}

func TestNilRegistryRejected(t *testing.T) {
	_, err := DetectStacks(context.Background(), "", t.TempDir(), nil, Options{})
	if err == nil {
		t.Error("expected an error for a nil registry")
	}
}

func TestUnknownScanModeRejected(t *testing.T) {
	_, err := DetectStacks(context.Background(), "", t.TempDir(), registry.Builtin(), Options{ScanMode: "turbo"})
	if err == nil || !strings.Contains(err.Error(), "unknown scan mode") {
		t.Errorf("expected scan mode error, got %v", err)
	}
}

func TestDetectionIsDeterministic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":     `{"name":"app","dependencies":{"react":"18.2.0"}}`,
		"tsconfig.json":    `{}`,
		"Dockerfile":       "FROM node:20\n",
		"src/index.tsx":    "export {}\n",
		"requirements.txt": "django\n",
		"manage.py":        "#!/usr/bin/env python\n",
	})

	var outputs []string
	for range 3 {
		res, err := DetectStacks(context.Background(), "ws-fixed", root, registry.Builtin(), Options{})
		if err != nil {
			t.Fatal(err)
		}
		data, err := json.Marshal(res)
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, string(data))
	}
	if outputs[0] != outputs[1] || outputs[1] != outputs[2] {
		t.Error("repeated runs over the same tree must produce identical results")
	}
}

func TestFileBudgetTruncatesIndex(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "globby", "displayName": "Globby", "category": "tooling",
		 "indicators": {
			"optional": [{"kind": "file-pattern-exists", "pattern": "**/*.dat", "weight": 2}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{
		"a.dat": "", "b.dat": "", "c.dat": "", "d.dat": "", "e.dat": "",
	})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{
		Limits: Limits{MaxFiles: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete {
		t.Error("an exhausted file budget must mark the result incomplete")
	}
	if res.FilesIndexed != 2 {
		t.Errorf("expected 2 files charged, got %d", res.FilesIndexed)
	}
}

func TestMaxDepthBoundsPatternIndicators(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "deep", "displayName": "Deep", "category": "tooling",
		 "indicators": {
			"optional": [{"kind": "file-pattern-exists", "pattern": "**/*.xyz", "weight": 2}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{
		"a/b/c/marker.xyz": "",
	})

	shallow, err := DetectStacks(context.Background(), "", root, reg, Options{MaxDepth: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(shallow, "deep"); ok {
		t.Error("file below maxDepth must not produce evidence")
	}

	full, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(full, "deep"); !ok {
		t.Error("default depth should reach the marker file")
	}
}

func TestMaxBytesPerFileBoundsContentReads(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "needle", "displayName": "Needle", "category": "tooling",
		 "indicators": {
			"optional": [{"kind": "file-contains", "path": "big.txt", "pattern": "needle", "weight": 2}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{
		"big.txt": strings.Repeat("x", 100) + "needle",
	})

	bounded, err := DetectStacks(context.Background(), "", root, reg, Options{
		Limits: Limits{MaxBytesPerFile: 64},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(bounded, "needle"); ok {
		t.Error("pattern past the byte limit must not match")
	}

	unbounded, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findDetected(unbounded, "needle"); !ok {
		t.Error("default byte limit should reach the pattern")
	}
}

func TestSearchRoots(t *testing.T) {
	reg := mustRegistry(t, `{"version": "1", "stacks": [
		{"id": "nested", "displayName": "Nested", "category": "language",
		 "searchRoots": ["backend"],
		 "indicators": {
			"requiredAny": [{"kind": "file-exists", "path": "requirements.txt", "weight": 3}],
			"optional": [{"kind": "file-exists", "path": "requirements.txt", "rootRelative": true, "weight": 2}]
		 },
		 "detection": {"minScore": 1}}
	]}`)
	root := writeTree(t, map[string]string{
		"backend/requirements.txt": "flask\n",
	})

	res, err := DetectStacks(context.Background(), "", root, reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	d, ok := findDetected(res, "nested")
	if !ok {
		t.Fatal("expected the search root to satisfy the gate")
	}
	// The gate matched under backend/; the root-relative optional did not.
	if d.Score != 3 {
		t.Errorf("expected score 3, got %v", d.Score)
	}
	if len(d.Evidence) != 1 || d.Evidence[0].Path != "backend/requirements.txt" {
		t.Errorf("unexpected evidence: %+v", d.Evidence)
	}
}
