package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/infumatch/negotiator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStoreHasStageTemplates(t *testing.T) {
	s := DefaultStore()

	for _, id := range []string{
		TemplateThreadAnalysis,
		TemplateStrategyPlan,
		TemplateContentEvaluation,
		PatternTemplateID("collaborative"),
		PatternTemplateID("balanced"),
		PatternTemplateID("formal"),
	} {
		tpl, ok := s.Lookup(id)
		require.True(t, ok, "missing built-in template %q", id)
		assert.NotEmpty(t, tpl.System, "template %q has no system prompt", id)
	}
}

func TestRenderSubstitutesVariables(t *testing.T) {
	s := DefaultStore()

	rendered, err := s.Render(TemplateThreadAnalysis, map[string]any{
		"Message":      "ご提案について予算を教えてください",
		"History":      "(no prior messages)",
		"HistoryCount": 0,
	})
	require.NoError(t, err)

	assert.Contains(t, rendered.User, "ご提案について予算を教えてください")
	assert.Equal(t, model.CapabilityAnalysis, rendered.Template.Capability)
	assert.Contains(t, rendered.System, "JSON")
}

func TestRenderUnknownTemplate(t *testing.T) {
	s := DefaultStore()

	_, err := s.Render("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown prompt template")
}

func TestRenderMissingVariable(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.RegisterText("greet", model.CapabilityFast, "", "Hello {{.Name}}"))

	_, err := s.Render("greet", map[string]any{})
	assert.Error(t, err, "missing variables should fail loudly, not render <no value>")
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	s := DefaultStore()

	dir := t.TempDir()
	override := "CUSTOM ANALYSIS PROMPT {{.Message}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplateThreadAnalysis+".tmpl"), []byte(override), 0o644))

	require.NoError(t, s.LoadDir(dir, nil))

	rendered, err := s.Render(TemplateThreadAnalysis, map[string]any{"Message": "hi"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rendered.User, "CUSTOM ANALYSIS PROMPT"))

	// Capability and system prompt survive the override.
	assert.Equal(t, model.CapabilityAnalysis, rendered.Template.Capability)
	assert.NotEmpty(t, rendered.System)
}

func TestLoadDirRegistersNewTemplate(t *testing.T) {
	s := DefaultStore()

	dir := t.TempDir()
	sub := filepath.Join(dir, "extra")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "followup.tmpl"), []byte("Follow up on {{.Topic}}"), 0o644))

	require.NoError(t, s.LoadDir(dir, nil))

	rendered, err := s.Render("followup", map[string]any{"Topic": "pricing"})
	require.NoError(t, err)
	assert.Equal(t, "Follow up on pricing", rendered.User)
	assert.Equal(t, model.CapabilityFast, rendered.Template.Capability)
}

func TestLoadDirSkipsMalformedFiles(t *testing.T) {
	s := DefaultStore()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.tmpl"), []byte("{{.Unclosed"), 0o644))

	// Malformed overrides are skipped, not fatal.
	require.NoError(t, s.LoadDir(dir, nil))
	_, ok := s.Lookup("broken")
	assert.False(t, ok)
}

func TestWatchTargetsIncludesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "patterns", "formal")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	dirs, err := watchTargets(dir)
	require.NoError(t, err)

	assert.Contains(t, dirs, dir)
	assert.Contains(t, dirs, filepath.Join(dir, "patterns"))
	assert.Contains(t, dirs, sub)
}

func TestWatchReloadsNestedOverride(t *testing.T) {
	s := DefaultStore()

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Watch(ctx, dir, nil) }()

	// Let the watcher register its directories before writing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "followup.tmpl"), []byte("Nested {{.Topic}}"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := s.Lookup("followup")
		return ok
	}, 5*time.Second, 50*time.Millisecond, "nested override never hot-reloaded")
}
