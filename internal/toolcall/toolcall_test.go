package toolcall_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffscope/internal/toolcall"
	"github.com/diffscope/internal/toolset"
)

func TestDecodeRepairsMalformedPayload(t *testing.T) {
	// Trailing comma and single quotes, typical model sloppiness.
	call, err := toolcall.Decode("search_repository", `{'query': 'Handle', 'regex': false,}`)
	require.NoError(t, err)
	require.NotNil(t, call.SearchRepository)
	assert.Equal(t, "Handle", call.SearchRepository.Query)
}

func TestDecodeAppliesDefaultsAndCaps(t *testing.T) {
	call, err := toolcall.Decode("search_repository", `{"query":"x","max_results":999999}`)
	require.NoError(t, err)
	assert.Equal(t, toolset.DefaultContextLines, call.SearchRepository.ContextLines)
	assert.Equal(t, toolset.MaxResultsCeiling, call.SearchRepository.MaxResults)

	win, err := toolcall.Decode("search_window", `{"path":"a.go","text":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, toolset.DefaultContextLines, win.SearchWindow.ContextLines)

	dep, err := toolcall.Decode("dependency_graph", `{"path":"a.ts","depth":0}`)
	require.NoError(t, err)
	assert.Equal(t, 1, dep.DependencyGraph.Depth)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	_, err := toolcall.Decode("read_files", `{"paths":[]}`)
	assert.ErrorContains(t, err, "non-empty")

	_, err = toolcall.Decode("search_window", `{"path":"a.go"}`)
	assert.ErrorContains(t, err, "required")

	_, err = toolcall.Decode("search_repository", `{}`)
	assert.ErrorContains(t, err, "query")

	_, err = toolcall.Decode("self_destruct", `{}`)
	assert.ErrorContains(t, err, "unknown tool kind")
}

func TestDispatch(t *testing.T) {
	ts := newToolset(t)

	call, err := toolcall.Decode("read_files", `{"paths":["hello.txt"]}`)
	require.NoError(t, err)
	assert.Contains(t, call.Dispatch(context.Background(), ts), "hello world")

	call, err = toolcall.Decode("search_window", `{"path":"hello.txt","text":"world"}`)
	require.NoError(t, err)
	assert.Contains(t, call.Dispatch(context.Background(), ts), "> ")
}

func TestDispatchFailureIsText(t *testing.T) {
	ts := newToolset(t)
	call, err := toolcall.Decode("read_files", `{"paths":["no-such-file.txt"]}`)
	require.NoError(t, err)

	out := call.Dispatch(context.Background(), ts)
	assert.Contains(t, out, "error", "tool failure is recoverable text, not an error")
}

func newToolset(t *testing.T) *toolset.Toolset {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello world\n"), 0o644))
	ts, err := toolset.New(root, toolset.Config{SearchBinary: "-"}, zerolog.Nop())
	require.NoError(t, err)
	return ts
}
