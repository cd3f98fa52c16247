package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/legisla/internal/model"
	"go.uber.org/zap"
)

// Store is the read side of the vote record store
type Store interface {
	ListVotationIDs(ctx context.Context) ([]string, error)
	GetVotes(ctx context.Context, votationID string) ([]model.VoteRecord, error)
	GetMetadata(ctx context.Context, votationID string) (model.VotationMetadata, error)
}

// VotationSummary describes one votation that took part in a run
type VotationSummary struct {
	ID             string           `json:"id"`
	Date           time.Time        `json:"date"`
	Title          string           `json:"title"`
	OfficialResult string           `json:"official_result"`
	Outcome        model.VoteChoice `json:"outcome"` // Outcome used for prediction scoring
	Affirmative    int              `json:"affirmatives"`
	Negative       int              `json:"negatives"`
	Records        int              `json:"records"`
	Blocks         int              `json:"blocks"`
}

// SkippedVotation is a votation excluded from a run
type SkippedVotation struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Run is the complete result of one analysis run
type Run struct {
	ID         string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	GroupBy    string                   `json:"group_by"`
	Governing  string                   `json:"governing_block"`
	Votations  []VotationSummary        `json:"votations"`
	Skipped    []SkippedVotation        `json:"skipped,omitempty"`
	Statistics []model.DeputyStatistics `json:"statistics"`
}

// AnalyzedIDs returns the ids of the votations included in the run
func (r *Run) AnalyzedIDs() []string {
	ids := make([]string, len(r.Votations))
	for i, v := range r.Votations {
		ids[i] = v.ID
	}
	return ids
}

// Analyzer runs the vote-analysis pipeline over a Store.
// It never writes to the store.
type Analyzer struct {
	store          Store
	governingBlock string
	aggregator     *Aggregator
	logger         *zap.Logger
}

// NewAnalyzer creates an analyzer from the analysis configuration
func NewAnalyzer(store Store, cfg model.AnalysisConfig, logger *zap.Logger) (*Analyzer, error) {
	if cfg.GoverningBlock == "" {
		return nil, fmt.Errorf("governing block is required")
	}
	agg, err := NewAggregator(cfg.GroupBy)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		store:          store,
		governingBlock: cfg.GoverningBlock,
		aggregator:     agg,
		logger:         logger,
	}, nil
}

// ComputeBlockPreferences returns each block's preference for one votation
func (a *Analyzer) ComputeBlockPreferences(ctx context.Context, votationID string) (map[string]model.BlockPreference, error) {
	records, err := a.store.GetVotes(ctx, votationID)
	if err != nil {
		return nil, fmt.Errorf("get votes: %w", err)
	}
	return ResolveBlockPreferences(votationID, records)
}

// ClassifyVotation classifies every ordinary vote of one votation
func (a *Analyzer) ClassifyVotation(ctx context.Context, votationID string) ([]model.ClassifiedVote, error) {
	records, err := a.store.GetVotes(ctx, votationID)
	if err != nil {
		return nil, fmt.Errorf("get votes: %w", err)
	}
	return ClassifyRecords(votationID, records, a.governingBlock)
}

// AggregateAll computes statistics for every deputy across all stored votations
func (a *Analyzer) AggregateAll(ctx context.Context) ([]model.DeputyStatistics, error) {
	run, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}
	return run.Statistics, nil
}

// Run executes a full analysis run. Votations that fail classification are
// logged and skipped; store failures abort the run. Votations whose roll call
// has not been scraped yet are left out without a skip entry.
func (a *Analyzer) Run(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		GroupBy:   a.aggregator.groupBy,
		Governing: a.governingBlock,
	}
	log := a.logger.With(zap.String("run_id", run.ID))

	ids, err := a.store.ListVotationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list votations: %w", err)
	}

	var all []model.ClassifiedVote
	for _, id := range ids {
		meta, err := a.store.GetMetadata(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get metadata %s: %w", id, err)
		}
		if !meta.Loaded() {
			log.Debug("votation not scraped yet", zap.String("votation_id", id))
			continue
		}
		records, err := a.store.GetVotes(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get votes %s: %w", id, err)
		}

		classified, err := ClassifyRecords(id, records, a.governingBlock)
		if err != nil {
			if !isVotationError(err) {
				return nil, err
			}
			log.Warn("skipping votation", zap.String("votation_id", id), zap.String("title", meta.Title), zap.Error(err))
			run.Skipped = append(run.Skipped, SkippedVotation{ID: id, Reason: err.Error()})
			continue
		}

		run.Votations = append(run.Votations, summarize(meta, records, classified))
		all = append(all, classified...)
	}

	run.Statistics = a.aggregator.Aggregate(all)

	log.Info("analysis complete",
		zap.Int("votations", len(run.Votations)),
		zap.Int("skipped", len(run.Skipped)),
		zap.Int("deputies", len(run.Statistics)),
	)

	return run, nil
}

// isVotationError reports whether err only invalidates a single votation
func isVotationError(err error) bool {
	var missing *MissingBlockError
	var unknown *UnknownBlockPreferenceError
	var empty *EmptyVotationError
	var choice *UnknownChoiceError
	return errors.As(err, &missing) || errors.As(err, &unknown) || errors.As(err, &empty) || errors.As(err, &choice)
}

func summarize(meta model.VotationMetadata, records []model.VoteRecord, classified []model.ClassifiedVote) VotationSummary {
	s := VotationSummary{
		ID:             meta.ID,
		Date:           meta.Date,
		Title:          meta.Title,
		OfficialResult: meta.Result,
		Outcome:        VotationOutcome(records),
		Records:        len(classified),
	}
	blocks := make(map[string]struct{})
	for _, v := range classified {
		blocks[v.Block] = struct{}{}
		switch v.Choice {
		case model.ChoiceAffirmative:
			s.Affirmative++
		case model.ChoiceNegative:
			s.Negative++
		}
	}
	s.Blocks = len(blocks)
	return s
}
