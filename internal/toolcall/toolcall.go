// Package toolcall is the validation boundary between the model and
// the toolset. The model emits JSON payloads that are frequently
// slightly malformed, so payloads are repaired before decoding, then
// checked against a closed set of tool kinds with validated parameter
// schemas. Only a validated call ever reaches the toolset.
package toolcall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"github.com/diffscope/internal/toolset"
)

// Kind names one of the four supported tool operations.
type Kind string

const (
	KindReadFiles        Kind = "read_files"
	KindSearchWindow     Kind = "search_window"
	KindSearchRepository Kind = "search_repository"
	KindDependencyGraph  Kind = "dependency_graph"
)

// ReadFilesParams requires a non-empty path list.
type ReadFilesParams struct {
	Paths []string `json:"paths"`
}

// SearchWindowParams searches one file with surrounding context.
type SearchWindowParams struct {
	Path         string `json:"path"`
	Text         string `json:"text"`
	ContextLines int    `json:"context_lines"`
}

// SearchRepositoryParams mirrors toolset.SearchOptions at the wire
// boundary.
type SearchRepositoryParams struct {
	Query         string   `json:"query"`
	CaseSensitive bool     `json:"case_sensitive"`
	Regex         bool     `json:"regex"`
	WordBoundary  bool     `json:"word_boundary"`
	Extensions    []string `json:"extensions"`
	Paths         []string `json:"paths"`
	ContextLines  int      `json:"context_lines"`
	MaxResults    int      `json:"max_results"`
}

// DependencyGraphParams walks imports/importers from one file.
type DependencyGraphParams struct {
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

// Call is the closed tagged union of tool invocations. Exactly one
// params field is non-nil, matching Kind.
type Call struct {
	Kind Kind

	ReadFiles        *ReadFilesParams
	SearchWindow     *SearchWindowParams
	SearchRepository *SearchRepositoryParams
	DependencyGraph  *DependencyGraphParams
}

// Decode repairs and parses a raw JSON payload for the named kind,
// validating parameters and applying defaults. Unknown kinds and
// invalid parameter sets are errors: the caller surfaces them to the
// model as tool output so the agent can correct itself.
func Decode(kind string, payload string) (*Call, error) {
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return nil, fmt.Errorf("unrepairable tool payload: %w", err)
	}

	call := &Call{Kind: Kind(kind)}
	switch call.Kind {
	case KindReadFiles:
		p := &ReadFilesParams{}
		if err := decodeParams(repaired, p); err != nil {
			return nil, err
		}
		if len(p.Paths) == 0 {
			return nil, fmt.Errorf("read_files: paths must be a non-empty list")
		}
		call.ReadFiles = p

	case KindSearchWindow:
		p := &SearchWindowParams{}
		if err := decodeParams(repaired, p); err != nil {
			return nil, err
		}
		if p.Path == "" || p.Text == "" {
			return nil, fmt.Errorf("search_window: path and text are required")
		}
		if p.ContextLines <= 0 {
			p.ContextLines = toolset.DefaultContextLines
		}
		call.SearchWindow = p

	case KindSearchRepository:
		p := &SearchRepositoryParams{}
		if err := decodeParams(repaired, p); err != nil {
			return nil, err
		}
		if p.Query == "" {
			return nil, fmt.Errorf("search_repository: query is required")
		}
		if p.ContextLines <= 0 {
			p.ContextLines = toolset.DefaultContextLines
		}
		if p.MaxResults <= 0 {
			p.MaxResults = toolset.DefaultMaxResults
		}
		if p.MaxResults > toolset.MaxResultsCeiling {
			p.MaxResults = toolset.MaxResultsCeiling
		}
		call.SearchRepository = p

	case KindDependencyGraph:
		p := &DependencyGraphParams{}
		if err := decodeParams(repaired, p); err != nil {
			return nil, err
		}
		if p.Path == "" {
			return nil, fmt.Errorf("dependency_graph: path is required")
		}
		if p.Depth < 1 {
			p.Depth = 1
		}
		call.DependencyGraph = p

	default:
		return nil, fmt.Errorf("unknown tool kind %q", kind)
	}

	return call, nil
}

func decodeParams(payload string, target any) error {
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("decoding tool parameters: %w", err)
	}
	return nil
}

// Dispatch executes a validated call against the toolset. Tool
// failures come back as text, never as errors, so they stay
// recoverable within the agent turn.
func (c *Call) Dispatch(ctx context.Context, ts *toolset.Toolset) string {
	switch c.Kind {
	case KindReadFiles:
		return ts.ReadFiles(c.ReadFiles.Paths)
	case KindSearchWindow:
		return ts.SearchWindow(c.SearchWindow.Path, c.SearchWindow.Text, c.SearchWindow.ContextLines)
	case KindSearchRepository:
		p := c.SearchRepository
		return ts.SearchRepository(ctx, p.Query, toolset.SearchOptions{
			CaseSensitive: p.CaseSensitive,
			Regex:         p.Regex,
			WordBoundary:  p.WordBoundary,
			Extensions:    p.Extensions,
			Paths:         p.Paths,
			ContextLines:  p.ContextLines,
			MaxResults:    p.MaxResults,
		})
	case KindDependencyGraph:
		return ts.DependencyGraph(c.DependencyGraph.Path, c.DependencyGraph.Depth)
	}
	return fmt.Sprintf("error: unknown tool kind %q", c.Kind)
}
