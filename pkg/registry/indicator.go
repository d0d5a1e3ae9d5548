package registry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
)

// IndicatorKind identifies one of the seven supported evidence rule kinds.
type IndicatorKind string

const (
	KindFileExists   IndicatorKind = "file-exists"
	KindDirExists    IndicatorKind = "directory-exists"
	KindFilePattern  IndicatorKind = "file-pattern-exists"
	KindFileContains IndicatorKind = "file-contains"
	KindPathMatches  IndicatorKind = "path-matches"
	KindJSONField    IndicatorKind = "json-field"
	KindTOMLField    IndicatorKind = "toml-field"
)

// Indicator is a single declarative evidence rule. The set of implementations
// is closed: every consumer type-switches over exactly the seven kinds above,
// so adding a kind is a compile-time visible change.
type Indicator interface {
	Kind() IndicatorKind
	Weight() float64
	// Describe returns a short human-readable form used in evidence records.
	Describe() string

	isIndicator()
}

// FileExists fires when a regular file exists at Path.
type FileExists struct {
	Path         string
	ScoreWeight  float64
	RootRelative bool
}

func (FileExists) Kind() IndicatorKind { return KindFileExists }
func (i FileExists) Weight() float64   { return i.ScoreWeight }
func (i FileExists) Describe() string  { return "file " + i.Path }
func (FileExists) isIndicator()        {}

// DirExists fires when a directory exists at Path.
type DirExists struct {
	Path         string
	ScoreWeight  float64
	RootRelative bool
}

func (DirExists) Kind() IndicatorKind { return KindDirExists }
func (i DirExists) Weight() float64   { return i.ScoreWeight }
func (i DirExists) Describe() string  { return "directory " + i.Path }
func (DirExists) isIndicator()        {}

// FilePattern fires when any relative path in the workspace matches a
// doublestar glob. The weight counts once no matter how many paths match;
// MaxMatches caps how many matched paths are recorded as evidence metadata.
type FilePattern struct {
	Pattern     string
	MaxMatches  int
	ScoreWeight float64
}

func (FilePattern) Kind() IndicatorKind { return KindFilePattern }
func (i FilePattern) Weight() float64   { return i.ScoreWeight }
func (i FilePattern) Describe() string  { return "files matching " + i.Pattern }
func (FilePattern) isIndicator()        {}

// FileContains fires when the bounded content of Path matches a regular
// expression.
type FileContains struct {
	Path         string
	Pattern      string
	ScoreWeight  float64
	RootRelative bool

	re *regexp.Regexp
}

func (FileContains) Kind() IndicatorKind { return KindFileContains }
func (i FileContains) Weight() float64   { return i.ScoreWeight }
func (i FileContains) Describe() string  { return i.Path + " contains " + i.Pattern }
func (FileContains) isIndicator()        {}

// Regexp returns the compiled content pattern.
func (i FileContains) Regexp() *regexp.Regexp { return i.re }

// PathMatches fires when any relative path in the workspace matches a
// regular expression.
type PathMatches struct {
	Pattern     string
	ScoreWeight float64

	re *regexp.Regexp
}

func (PathMatches) Kind() IndicatorKind { return KindPathMatches }
func (i PathMatches) Weight() float64   { return i.ScoreWeight }
func (i PathMatches) Describe() string  { return "path matching " + i.Pattern }
func (PathMatches) isIndicator()        {}

// Regexp returns the compiled path pattern.
func (i PathMatches) Regexp() *regexp.Regexp { return i.re }

// JSONField fires when the JSON document at Path has a value at Field
// (gjson path syntax). With a non-empty Expect list the field's value must
// additionally equal one of the expected values (compared in string form).
type JSONField struct {
	Path         string
	Field        string
	Expect       []string
	ScoreWeight  float64
	RootRelative bool
}

func (JSONField) Kind() IndicatorKind { return KindJSONField }
func (i JSONField) Weight() float64   { return i.ScoreWeight }
func (i JSONField) Describe() string  { return i.Path + " field " + i.Field }
func (JSONField) isIndicator()        {}

// TOMLField fires when the TOML document at Path has a value at the dotted
// Field path, with the same Expect semantics as JSONField.
type TOMLField struct {
	Path         string
	Field        string
	Expect       []string
	ScoreWeight  float64
	RootRelative bool
}

func (TOMLField) Kind() IndicatorKind { return KindTOMLField }
func (i TOMLField) Weight() float64   { return i.ScoreWeight }
func (i TOMLField) Describe() string  { return i.Path + " field " + i.Field }
func (TOMLField) isIndicator()        {}

// rawIndicator is the wire form shared by all indicator kinds.
type rawIndicator struct {
	Kind         IndicatorKind `json:"kind"`
	Weight       float64       `json:"weight"`
	Path         string        `json:"path,omitempty"`
	Pattern      string        `json:"pattern,omitempty"`
	Field        string        `json:"field,omitempty"`
	Expect       expectList    `json:"expect,omitempty"`
	MaxMatches   int           `json:"maxMatches,omitempty"`
	RootRelative bool          `json:"rootRelative,omitempty"`
}

// expectList accepts either a single JSON scalar or an array of scalars.
type expectList []string

func (e *expectList) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		var scalar any
		if err := json.Unmarshal(data, &scalar); err != nil {
			return err
		}
		list = []any{scalar}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case float64:
			out = append(out, strconv.FormatFloat(val, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(val))
		default:
			return fmt.Errorf("expect values must be scalars, got %T", v)
		}
	}
	*e = out
	return nil
}

// IndicatorList decodes a JSON array of tagged indicators into concrete
// Indicator values. Unknown kinds and invalid patterns are load errors.
type IndicatorList []Indicator

func (l *IndicatorList) UnmarshalJSON(data []byte) error {
	var raws []rawIndicator
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make([]Indicator, 0, len(raws))
	for _, raw := range raws {
		ind, err := decodeIndicator(raw)
		if err != nil {
			return err
		}
		out = append(out, ind)
	}
	*l = out
	return nil
}

func decodeIndicator(raw rawIndicator) (Indicator, error) {
	if raw.Weight < 0 {
		return nil, fmt.Errorf("indicator %q: negative weight %v", raw.Kind, raw.Weight)
	}

	switch raw.Kind {
	case KindFileExists:
		if raw.Path == "" {
			return nil, fmt.Errorf("%s indicator: path is required", raw.Kind)
		}
		return FileExists{Path: raw.Path, ScoreWeight: raw.Weight, RootRelative: raw.RootRelative}, nil

	case KindDirExists:
		if raw.Path == "" {
			return nil, fmt.Errorf("%s indicator: path is required", raw.Kind)
		}
		return DirExists{Path: raw.Path, ScoreWeight: raw.Weight, RootRelative: raw.RootRelative}, nil

	case KindFilePattern:
		if raw.Pattern == "" || !doublestar.ValidatePattern(raw.Pattern) {
			return nil, fmt.Errorf("%s indicator: invalid glob %q", raw.Kind, raw.Pattern)
		}
		maxMatches := raw.MaxMatches
		if maxMatches <= 0 {
			maxMatches = defaultPatternMatches
		}
		return FilePattern{Pattern: raw.Pattern, MaxMatches: maxMatches, ScoreWeight: raw.Weight}, nil

	case KindFileContains:
		if raw.Path == "" {
			return nil, fmt.Errorf("%s indicator: path is required", raw.Kind)
		}
		re, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s indicator: invalid pattern %q: %w", raw.Kind, raw.Pattern, err)
		}
		return FileContains{Path: raw.Path, Pattern: raw.Pattern, ScoreWeight: raw.Weight, RootRelative: raw.RootRelative, re: re}, nil

	case KindPathMatches:
		if raw.Pattern == "" {
			return nil, fmt.Errorf("%s indicator: pattern is required", raw.Kind)
		}
		re, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s indicator: invalid pattern %q: %w", raw.Kind, raw.Pattern, err)
		}
		return PathMatches{Pattern: raw.Pattern, ScoreWeight: raw.Weight, re: re}, nil

	case KindJSONField:
		if raw.Path == "" || raw.Field == "" {
			return nil, fmt.Errorf("%s indicator: path and field are required", raw.Kind)
		}
		return JSONField{Path: raw.Path, Field: raw.Field, Expect: raw.Expect, ScoreWeight: raw.Weight, RootRelative: raw.RootRelative}, nil

	case KindTOMLField:
		if raw.Path == "" || raw.Field == "" {
			return nil, fmt.Errorf("%s indicator: path and field are required", raw.Kind)
		}
		return TOMLField{Path: raw.Path, Field: raw.Field, Expect: raw.Expect, ScoreWeight: raw.Weight, RootRelative: raw.RootRelative}, nil

	default:
		return nil, fmt.Errorf("unknown indicator kind %q", raw.Kind)
	}
}

// defaultPatternMatches caps how many glob matches are recorded when the
// registry document does not set maxMatches.
const defaultPatternMatches = 10

func encodeIndicator(ind Indicator) rawIndicator {
	switch i := ind.(type) {
	case FileExists:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Path: i.Path, RootRelative: i.RootRelative}
	case DirExists:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Path: i.Path, RootRelative: i.RootRelative}
	case FilePattern:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Pattern: i.Pattern, MaxMatches: i.MaxMatches}
	case FileContains:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Path: i.Path, Pattern: i.Pattern, RootRelative: i.RootRelative}
	case PathMatches:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Pattern: i.Pattern}
	case JSONField:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Path: i.Path, Field: i.Field, Expect: i.Expect, RootRelative: i.RootRelative}
	case TOMLField:
		return rawIndicator{Kind: i.Kind(), Weight: i.ScoreWeight, Path: i.Path, Field: i.Field, Expect: i.Expect, RootRelative: i.RootRelative}
	}
	return rawIndicator{}
}

func (l IndicatorList) MarshalJSON() ([]byte, error) {
	raws := make([]rawIndicator, len(l))
	for n, ind := range l {
		raws[n] = encodeIndicator(ind)
	}
	return json.Marshal(raws)
}
