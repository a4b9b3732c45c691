package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"relmap/internal/config"
	"relmap/internal/domain"
	"relmap/internal/export"
	"relmap/internal/label"
	"relmap/internal/relation"
	"relmap/internal/store"
)

// aggregateAndExport runs the single-threaded half of the pipeline: all
// concurrent fetch work has joined by the time it is called, so ordering
// below is fully deterministic.
func aggregateAndExport(ctx context.Context, cfg *config.Config, participants []domain.Participant, messages []domain.Message) error {
	classifier := relation.NewClassifier(participants, messages, relation.Options{
		ThreadPropagation:         cfg.Classifier.ThreadPropagation,
		NonConversationalSubtypes: cfg.Classifier.NonConversationalSubtypes,
	})
	logger.Info("aggregating relations")
	reg := relation.BuildRegistry(classifier, messages)
	logger.Info("relations aggregated", "edges", reg.EdgeCount())

	labels := buildLabels(ctx, cfg, reg)

	policy, err := relation.PolicyFor(cfg.Strength.Policy, cfg.Strength.Divisions)
	if err != nil {
		return err
	}
	opts, err := export.LoadOptions(cfg.General.DrawIOOptionsFile)
	if err != nil {
		return fmt.Errorf("%w (run `relmap init` to create a starter file)", err)
	}

	plan := export.New(policy, labels, logger).BuildPlan(reg, participants)
	if err := export.WriteArtifacts(cfg.General.OutputDir, plan, opts, time.Now(), logger); err != nil {
		return err
	}
	if err := export.WriteParticipantDumps(cfg.UserDumpDir(), reg, participants, logger); err != nil {
		return err
	}

	if cfg.History.Enabled {
		// History is an archive, not the deliverable: a failure here
		// must not fail a run whose artifacts are already on disk.
		if err := archiveRun(ctx, cfg, reg, policy, labels, messages); err != nil {
			logger.Warn("cannot archive run", "err", err)
		}
	}
	return nil
}

// buildLabels runs the pair labeler when it is enabled and an API key
// resolves; any failure degrades to primary-channel labels.
func buildLabels(ctx context.Context, cfg *config.Config, reg *relation.Registry) map[string]string {
	if !cfg.Labeler.Enabled {
		return nil
	}

	apiKey, err := config.ResolveSecret(config.EnvOpenAIAPIKey, cfg.Labeler.APIKeyFile, cfg.Labeler.APIKey)
	if err != nil || apiKey == "" {
		logger.Warn("labeler enabled but no API key resolved, using channel labels", "err", err)
		return nil
	}

	prompt := ""
	if cfg.Labeler.PromptFile != "" {
		data, err := os.ReadFile(cfg.Labeler.PromptFile)
		if err != nil {
			logger.Warn("cannot read prompt template, using default", "path", cfg.Labeler.PromptFile, "err", err)
		} else {
			prompt = string(data)
		}
	}

	summarizer, err := label.NewOpenAISummarizer(label.OpenAIConfig{
		APIKey:         apiKey,
		BaseURL:        cfg.Labeler.BaseURL,
		Model:          cfg.Labeler.Model,
		PromptTemplate: prompt,
	})
	if err != nil {
		logger.Warn("cannot build summarizer, using channel labels", "err", err)
		return nil
	}

	labeler := label.New(label.Config{
		Summarizer:  summarizer,
		Logger:      logger,
		TextBudget:  cfg.Labeler.TextBudget,
		Concurrency: cfg.Labeler.Concurrency,
	})
	labels := labeler.LabelAll(ctx, reg)
	logger.Info("pair labels generated", "count", len(labels))
	return labels
}

func archiveRun(ctx context.Context, cfg *config.Config, reg *relation.Registry, policy relation.StrengthPolicy, labels map[string]string, messages []domain.Message) error {
	st, err := store.New(cfg.History.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	maxCount, err := reg.MaxMessageCount()
	if err != nil {
		maxCount = 0
	}

	var edges []store.EdgeRecord
	for _, rel := range reg.Relations() {
		strength := 0
		if maxCount > 0 {
			strength = policy.Classify(rel.MessageCount(), maxCount)
		}
		lbl := labels[relation.PairKey(rel.FromID, rel.ToID)]
		if lbl == "" {
			lbl = rel.PrimaryChannel()
		}
		edges = append(edges, store.EdgeRecord{
			FromID:       rel.FromID,
			ToID:         rel.ToID,
			MessageCount: rel.MessageCount(),
			Strength:     strength,
			Label:        lbl,
		})
	}

	channels := make(map[string]struct{})
	for _, m := range messages {
		channels[m.Channel] = struct{}{}
	}

	_, err = st.ArchiveRun(ctx, store.RunSummary{
		StartedAt:    time.Now(),
		WindowDays:   cfg.General.WindowDays,
		ChannelCount: len(channels),
		MessageCount: len(messages),
		EdgeCount:    reg.EdgeCount(),
	}, edges)
	return err
}
