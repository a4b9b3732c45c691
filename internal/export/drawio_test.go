package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() *Plan {
	return &Plan{
		Header: []string{"id", "name", "image", "U1toU2", "U2toU1"},
		Rows: [][]string{
			{"U1", "alice", "https://img/u1", "U2", ""},
			{"U2", "bob", "https://img/u2", "", "U1"},
		},
		Columns: []Column{
			{Label: "U1toU2", Strength: 5, VisualLabel: "general"},
			{Label: "U2toU1", Strength: 1, VisualLabel: "random"},
		},
	}
}

func TestRenderDrawIO_Layout(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	out := RenderDrawIO(testPlan(), DefaultOptions(), "", now)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "# generated: 2026/08/30 12:00:00", lines[0])
	assert.Contains(t, out, `# connect: {"from": "U1toU2", "to": "id", "label": "general", "style": "curved=1;fontSize=11;strokeWidth=5;strokeColor=#C94126;"}`)
	assert.Contains(t, out, "id,name,image,U1toU2,U2toU1\nU1,alice,https://img/u1,U2,\nU2,bob,https://img/u2,,U1\n")
	assert.NotContains(t, out, relOptionsMarker)
}

func TestRenderDrawIO_PriorRunColoring(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	opts := DefaultOptions()

	first := RenderDrawIO(testPlan(), opts, "", now)
	// First run: no prior artifact, every connect is new.
	assert.Equal(t, 2, strings.Count(first, "strokeColor=#C94126;"))

	// Second run over the first run's output: everything is unchanged.
	second := RenderDrawIO(testPlan(), opts, first, now)
	assert.Equal(t, 2, strings.Count(second, "strokeColor=black;"))
	assert.NotContains(t, second, "strokeColor=#C94126;")

	// A plan with one new relation marks only that one.
	plan := testPlan()
	plan.Columns = append(plan.Columns, Column{Label: "U1toU3", Strength: 2, VisualLabel: "general"})
	third := RenderDrawIO(plan, opts, first, now)
	assert.Equal(t, 1, strings.Count(third, "strokeColor=#C94126;"))
	assert.Contains(t, third, `"from": "U1toU3"`)
}

func TestPreviousLabels(t *testing.T) {
	prior := strings.Join([]string{
		`# generated: 2026/08/23 09:00:00`,
		`# connect: {"from": "U1toU2", "to": "id", "label": "general", "style": "curved=1;"}`,
		`# connect: {"from": "U9toU1", "to": "id", "label": "random", "style": "curved=1;"}`,
		`id,name,image`,
	}, "\n")

	labels := PreviousLabels(prior)
	assert.Len(t, labels, 2)
	assert.Contains(t, labels, "U1toU2")
	assert.Contains(t, labels, "U9toU1")

	assert.Empty(t, PreviousLabels(""))
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawio.yaml")

	content := "template: |-\n  # label: %name%\n  $REL_OPTIONS$\nchangedColor: red\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "red", opts.ChangedColor)
	assert.Equal(t, "black", opts.BaseColor, "unset fields keep defaults")
	assert.Contains(t, opts.Template, relOptionsMarker)
}

func TestLoadOptions_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadOptions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "nomarker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("template: '# label: %name%'\n"), 0o644))
	_, err = LoadOptions(path)
	assert.ErrorContains(t, err, relOptionsMarker)
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteArtifacts(dir, testPlan(), DefaultOptions(), now, testLogger()))

	pure, err := os.ReadFile(filepath.Join(dir, PureCSVName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pure), "id,name,image,U1toU2,U2toU1\n"))

	// Second write reads the first artifact back and flips colors.
	require.NoError(t, WriteArtifacts(dir, testPlan(), DefaultOptions(), now, testLogger()))
	drawio, err := os.ReadFile(filepath.Join(dir, DrawIOCSVName))
	require.NoError(t, err)
	assert.Contains(t, string(drawio), "strokeColor=black;")
}
