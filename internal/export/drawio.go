package export

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Options configures the draw.io CSV artifact. It lives in a YAML file so
// the layout block can be tuned without rebuilding the tool.
type Options struct {
	// Template is the draw.io CSV-import configuration block. The
	// $REL_OPTIONS$ marker is replaced with one connect directive per
	// relation column.
	Template string `yaml:"template"`
	// BaseColor styles connects that already existed in the previous run.
	BaseColor string `yaml:"baseColor"`
	// ChangedColor styles connects absent from the previous run's output.
	ChangedColor string `yaml:"changedColor"`
	// Style is the connect style string; the strength and the color are
	// substituted for its %d and %s verbs.
	Style string `yaml:"style"`
}

const relOptionsMarker = "$REL_OPTIONS$"

func DefaultOptions() Options {
	return Options{
		Template: strings.Join([]string{
			"# label: %name%",
			"# style: shape=image;image=%image%;rounded=1;verticalLabelPosition=bottom;verticalAlign=top;",
			relOptionsMarker,
			"# width: 64",
			"# height: 64",
			"# ignore: id,image",
			"# nodespacing: 60",
			"# levelspacing: 100",
			"# edgespacing: 40",
			"# layout: auto",
		}, "\n"),
		BaseColor:    "black",
		ChangedColor: "#C94126",
		Style:        "curved=1;fontSize=11;strokeWidth=%d;strokeColor=%s;",
	}
}

// LoadOptions reads the draw.io options YAML. The file is required; empty
// fields fall back to the defaults so a template-only file stays valid.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("cannot read draw.io options %s: %w", path, err)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("cannot parse draw.io options %s: %w", path, err)
	}
	if !strings.Contains(opts.Template, relOptionsMarker) {
		return Options{}, fmt.Errorf("draw.io options %s: template is missing the %s marker", path, relOptionsMarker)
	}
	return opts, nil
}

// WriteDefaultOptions writes a starter options file for hand editing.
func WriteDefaultOptions(path string) error {
	data, err := yaml.Marshal(DefaultOptions())
	if err != nil {
		return fmt.Errorf("cannot marshal default draw.io options: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write draw.io options %s: %w", path, err)
	}
	return nil
}

// connectPattern recovers the "from" labels of the connect directives in a
// previously generated artifact.
var connectPattern = regexp.MustCompile(`# connect: \{"from": "(.+?)"`)

// PreviousLabels scans a prior draw.io artifact for its connect labels. An
// empty document (previous file absent) yields an empty set, which marks
// every relation of the current run as new.
func PreviousLabels(prior string) map[string]struct{} {
	labels := make(map[string]struct{})
	for _, match := range connectPattern.FindAllStringSubmatch(prior, -1) {
		labels[match[1]] = struct{}{}
	}
	return labels
}

// RenderDrawIO renders the annotated artifact: a generation-timestamp
// comment, the template with connect directives substituted in, then the
// same header and body as the plain table. Relations whose column label did
// not appear in the previous artifact are colored as changed.
func RenderDrawIO(plan *Plan, opts Options, prior string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# generated: %s\n", now.Format("2006/01/02 15:04:05"))

	previous := PreviousLabels(prior)
	directives := make([]string, 0, len(plan.Columns))
	for _, col := range plan.Columns {
		color := opts.ChangedColor
		if _, ok := previous[col.Label]; ok {
			color = opts.BaseColor
		}
		style := fmt.Sprintf(opts.Style, col.Strength, color)
		directives = append(directives, fmt.Sprintf(
			"# connect: {\"from\": %q, \"to\": \"id\", \"label\": %q, \"style\": %q}",
			col.Label, col.VisualLabel, style,
		))
	}

	b.WriteString(strings.Replace(opts.Template, relOptionsMarker, strings.Join(directives, "\n"), 1))
	b.WriteString("\n")

	b.WriteString(strings.Join(plan.Header, ","))
	b.WriteString("\n")
	for _, row := range plan.Rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}
