package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"relmap/internal/domain"
	"relmap/internal/relation"
)

var identityColumns = []string{"id", "name", "image"}

// Column describes one relation column of the matrix together with the
// attributes its draw.io connect directive will carry.
type Column struct {
	Label       string
	Strength    int
	VisualLabel string // primary channel, or the labeler's summary when present
}

// Plan is the deterministic layout shared by both CSV artifacts: an export
// run is a pure function of the registry and the participant fetch order,
// never of wall clock or map iteration.
type Plan struct {
	Header []string
	Rows   [][]string
	// Columns backs the connect directives of the draw.io artifact. Empty
	// under the bucket policy, whose columns aggregate several relations
	// and have no single edge to draw.
	Columns []Column
}

// Exporter orders participants and relations and lays out the relation
// matrix according to the configured strength policy.
type Exporter struct {
	policy relation.StrengthPolicy
	labels map[string]string // unordered pair key -> summary label
	logger *slog.Logger
}

func New(policy relation.StrengthPolicy, labels map[string]string, logger *slog.Logger) *Exporter {
	return &Exporter{policy: policy, labels: labels, logger: logger}
}

// BuildPlan computes the export layout. Participants are ordered ascending
// by outgoing relation count so that isolated members, the easiest to place
// by hand in the diagram tool, come first; ties keep the fetch order. An
// empty registry yields a valid identity-only table.
func (e *Exporter) BuildPlan(reg *relation.Registry, participants []domain.Participant) *Plan {
	maxCount, err := reg.MaxMessageCount()
	if err != nil {
		if !errors.Is(err, relation.ErrEmptyRegistry) {
			e.logger.Warn("max message count unavailable", "err", err)
		}
		maxCount = 0
	}

	outgoing := make(map[string]int, len(participants))
	for _, p := range participants {
		outgoing[p.ID] = len(reg.RelationsFrom(p.ID))
	}
	ordered := make([]domain.Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return outgoing[ordered[i].ID] < outgoing[ordered[j].ID]
	})

	if e.policy.Kind() == relation.PolicyBucket {
		return e.buildBucketPlan(reg, ordered, outgoing, maxCount)
	}
	return e.buildTierPlan(reg, ordered, maxCount)
}

// buildTierPlan assigns each relation the next sequential global column and
// renders the recipient id at that position of the sender's row.
func (e *Exporter) buildTierPlan(reg *relation.Registry, ordered []domain.Participant, maxCount int) *Plan {
	total := reg.EdgeCount()
	var columns []Column
	rows := make([][]string, 0, len(ordered))

	for _, p := range ordered {
		cells := make([]string, total)
		for _, rel := range reg.RelationsFrom(p.ID) {
			cells[len(columns)] = rel.ToID
			columns = append(columns, Column{
				Label:       rel.FromID + "to" + rel.ToID,
				Strength:    e.policy.Classify(rel.MessageCount(), maxCount),
				VisualLabel: e.visualLabel(rel),
			})
		}
		row := append([]string{p.ID, p.Name, p.AvatarURL}, cells...)
		rows = append(rows, row)
	}

	header := append([]string{}, identityColumns...)
	for _, col := range columns {
		header = append(header, col.Label)
	}
	return &Plan{Header: header, Rows: rows, Columns: columns}
}

// buildBucketPlan reserves one column per strength bucket for every sender
// with outgoing relations and routes each recipient id into the bucket its
// message count classifies into. Several recipients may share a bucket.
func (e *Exporter) buildBucketPlan(reg *relation.Registry, ordered []domain.Participant, outgoing map[string]int, maxCount int) *Plan {
	div := e.policy.Divisions()

	senders := 0
	for _, p := range ordered {
		if outgoing[p.ID] > 0 {
			senders++
		}
	}
	total := senders * div

	var header []string
	header = append(header, identityColumns...)
	rows := make([][]string, 0, len(ordered))
	base := 0
	for _, p := range ordered {
		cells := make([]string, total)
		if outgoing[p.ID] > 0 {
			for b := 0; b < div; b++ {
				header = append(header, fmt.Sprintf("%s_b%d", p.ID, b))
			}
			for _, rel := range reg.RelationsFrom(p.ID) {
				idx := base + e.policy.Classify(rel.MessageCount(), maxCount)
				if cells[idx] != "" {
					cells[idx] += ";"
				}
				cells[idx] += rel.ToID
			}
			base += div
		}
		row := append([]string{p.ID, p.Name, p.AvatarURL}, cells...)
		rows = append(rows, row)
	}

	return &Plan{Header: header, Rows: rows}
}

func (e *Exporter) visualLabel(rel *relation.Relation) string {
	if label, ok := e.labels[relation.PairKey(rel.FromID, rel.ToID)]; ok && label != "" {
		return label
	}
	return rel.PrimaryChannel()
}

// RenderPure renders the plain relation table as RFC 4180 CSV.
func RenderPure(plan *Plan) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(plan.Header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(plan.Rows); err != nil {
		return "", fmt.Errorf("write csv body: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}
