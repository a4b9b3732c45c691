package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Output artifact names, fixed by contract with the downstream diagram flow.
const (
	PureCSVName   = "relation_pure.csv"
	DrawIOCSVName = "relation_forDrawIo.csv"
)

// WriteArtifacts renders and writes both relation tables under outDir. The
// previous draw.io artifact, when present, is read back before being
// overwritten so that relations new in this run can be highlighted; an
// absent file marks every relation as new.
func WriteArtifacts(outDir string, plan *Plan, opts Options, now time.Time, logger *slog.Logger) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", outDir, err)
	}

	pure, err := RenderPure(plan)
	if err != nil {
		return err
	}
	purePath := filepath.Join(outDir, PureCSVName)
	if err := os.WriteFile(purePath, []byte(pure), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", purePath, err)
	}

	drawioPath := filepath.Join(outDir, DrawIOCSVName)
	prior, err := os.ReadFile(drawioPath)
	if err != nil {
		logger.Info("no previous draw.io artifact, marking all relations new", "path", drawioPath)
		prior = nil
	}
	content := RenderDrawIO(plan, opts, string(prior), now)
	if err := os.WriteFile(drawioPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", drawioPath, err)
	}

	logger.Info("relation tables written", "pure", purePath, "drawio", drawioPath, "columns", len(plan.Header))
	return nil
}
