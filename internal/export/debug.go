package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"relmap/internal/domain"
	"relmap/internal/relation"
)

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeCellText keeps a message on one CSV row: commas become full-width
// commas and line breaks collapse to spaces.
func sanitizeCellText(s string) string {
	s = strings.ReplaceAll(s, ",", "，")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// WriteParticipantDumps writes one debug CSV per sender listing every
// contributing message. The directory is recreated on every run. A relation
// pointing at an id without a directory entry is skipped rather than
// failing the run.
func WriteParticipantDumps(dir string, reg *relation.Registry, participants []domain.Participant, logger *slog.Logger) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cannot clear dump directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create dump directory %s: %w", dir, err)
	}

	byID := make(map[string]domain.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	for _, from := range participants {
		rels := reg.RelationsFrom(from.ID)
		if len(rels) == 0 {
			continue
		}

		var b strings.Builder
		b.WriteString("toUser.name,message.text\n")
		for _, rel := range rels {
			to, ok := byID[rel.ToID]
			if !ok {
				logger.Warn("relation targets unknown participant", "from", rel.FromID, "to", rel.ToID)
				continue
			}
			for _, m := range rel.Messages() {
				fmt.Fprintf(&b, "%s,%s\n", to.Name, sanitizeCellText(m.Text))
			}
		}

		name := unsafeFilenameChars.ReplaceAllString(from.Name, "")
		path := filepath.Join(dir, name+".csv")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			logger.Warn("cannot write participant dump", "path", path, "err", err)
		}
	}
	return nil
}
