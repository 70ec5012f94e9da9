package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffscope/internal/diff"
	"github.com/diffscope/internal/toolset"
)

const reviewDiff = `diff --git a/app.go b/app.go
index 1111111..2222222 100644
--- a/app.go
+++ b/app.go
@@ -1,3 +1,4 @@
 package main
+func handle() {}
 func main() {
 }
`

// scriptedProvider replays canned responses and records the prompts it
// was given.
type scriptedProvider struct {
	responses []string
	prompts   []string
	err       error
}

func (p *scriptedProvider) Review(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return "", errors.New("script exhausted")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func newService(t *testing.T, provider *scriptedProvider, tools *toolset.Toolset) *Service {
	t.Helper()
	return New(provider, nil, tools, Config{Granularity: diff.ByHunk}, zerolog.Nop())
}

func TestRunSingleShot(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`
<comment>
<severity>nit</severity>
<file>app.go</file>
<line>+func handle() {}</line>
<message>handle is unused</message>
</comment>
`}}
	svc := newService(t, provider, nil)

	parsed, err := svc.Run(context.Background(), reviewDiff, nil)
	require.NoError(t, err)

	require.Len(t, parsed.Findings, 1)
	f := parsed.Findings[0]
	assert.Equal(t, "app.go", f.Path)
	require.NotNil(t, f.ResolvedLine)
	assert.Equal(t, 2, *f.ResolvedLine)

	// Without a toolset the prompt must not advertise tools.
	require.Len(t, provider.prompts, 1)
	assert.NotContains(t, provider.prompts[0], "<tool kind=")
	assert.Contains(t, provider.prompts[0], "+func handle() {}")
}

func TestRunServesToolRequests(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.go"), []byte("package main\nfunc handle() {}\n"), 0o644))
	tools, err := toolset.New(root, toolset.Config{SearchBinary: "-"}, zerolog.Nop())
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{
		`<tool kind="read_files">{"paths": ["app.go"]}</tool>`,
		`<comment>
<severity>optional</severity>
<file>app.go</file>
<line>+func handle() {}</line>
<message>wire handle into main</message>
</comment>`,
	}}
	svc := newService(t, provider, tools)

	parsed, err := svc.Run(context.Background(), reviewDiff, nil)
	require.NoError(t, err)
	require.Len(t, parsed.Findings, 1)

	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[0], `<tool kind="read_files">`)
	assert.Contains(t, provider.prompts[1], `<tool_result kind="read_files">`)
	assert.Contains(t, provider.prompts[1], "package main")
}

func TestRunFeedsToolErrorsBack(t *testing.T) {
	tools, err := toolset.New(t.TempDir(), toolset.Config{SearchBinary: "-"}, zerolog.Nop())
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{
		`<tool kind="launch_missiles">{}</tool>`,
		`no issues found`,
	}}
	svc := newService(t, provider, tools)

	parsed, err := svc.Run(context.Background(), reviewDiff, nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.Findings)
	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[1], "unknown tool kind")
}

func TestRunStopsAtToolRoundBudget(t *testing.T) {
	tools, err := toolset.New(t.TempDir(), toolset.Config{SearchBinary: "-"}, zerolog.Nop())
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{
		`<tool kind="read_files">{"paths": ["a"]}</tool>`,
		`<tool kind="read_files">{"paths": ["a"]}</tool>`,
		`<tool kind="read_files">{"paths": ["a"]}</tool>`,
	}}
	svc := New(provider, nil, tools, Config{Granularity: diff.ByHunk, MaxToolRounds: 2}, zerolog.Nop())

	parsed, err := svc.Run(context.Background(), reviewDiff, nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.Findings)
	// Initial call plus two tool rounds, then the budget cuts it off.
	assert.Len(t, provider.prompts, 3)
}

func TestRunPropagatesProviderError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("model unavailable")}
	svc := newService(t, provider, nil)

	_, err := svc.Run(context.Background(), reviewDiff, nil)
	assert.ErrorContains(t, err, "model unavailable")
}

func TestRunRejectsUnparsableDiff(t *testing.T) {
	svc := newService(t, &scriptedProvider{}, nil)
	_, err := svc.Run(context.Background(), "not a diff at all", nil)
	assert.ErrorIs(t, err, diff.ErrUnparsableDiff)
}
