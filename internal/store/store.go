package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/legisla/internal/model"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound       = errors.New("votation not found")
	ErrAlreadyScraped = errors.New("votation already scraped")
)

// Store persists votation metadata and roll calls in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMetadata inserts votations that are not stored yet and returns how many were added.
// Existing votations keep their stages.
func (s *Store) SaveMetadata(ctx context.Context, votations []model.VotationMetadata) (int, error) {
	if len(votations) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, v := range votations {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO votation_metadata (id, date, title, type, result)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, v.ID, v.Date.Format(dateLayout), v.Title, v.Type, v.Result)
		if err != nil {
			return 0, fmt.Errorf("insert votation %s: %w", v.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// SaveVotes stores the roll call of a votation and moves it to the scraped
// stage in the same transaction.
func (s *Store) SaveVotes(ctx context.Context, votationID string, records []model.VoteRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stage string
	err = tx.QueryRowContext(ctx, `SELECT scrape_stage FROM votation_metadata WHERE id = ?`, votationID).Scan(&stage)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", votationID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query stage: %w", err)
	}
	if model.ScrapeStage(stage) == model.StageScraped {
		return fmt.Errorf("%s: %w", votationID, ErrAlreadyScraped)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deputies_votes (vote_id, deputy, block, province, vote)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, votationID, r.Deputy, r.Block, r.Province, string(r.Choice)); err != nil {
			return fmt.Errorf("insert vote of %s: %w", r.Deputy, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE votation_metadata SET scrape_stage = ? WHERE id = ?`, string(model.StageScraped), votationID); err != nil {
		return fmt.Errorf("update stage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MarkAnalyzed moves the given votations to the analyzed stage atomically
func (s *Store) MarkAnalyzed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `UPDATE votation_metadata SET analysis_stage = ? WHERE id = ?`, string(model.StageAnalyzed), id)
		if err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListVotationIDs returns every votation id ordered by date then id
func (s *Store) ListVotationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM votation_metadata ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query votations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetVotes returns the roll call of a votation in stored order, presiding row included
func (s *Store) GetVotes(ctx context.Context, votationID string) ([]model.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vote_id, deputy, block, province, vote
		FROM deputies_votes
		WHERE vote_id = ?
		ORDER BY id
	`, votationID)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	records := []model.VoteRecord{}
	for rows.Next() {
		var r model.VoteRecord
		var choice string
		if err := rows.Scan(&r.VotationID, &r.Deputy, &r.Block, &r.Province, &choice); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		r.Choice = model.VoteChoice(choice)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetMetadata returns the metadata of one votation
func (s *Store) GetMetadata(ctx context.Context, votationID string) (model.VotationMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, title, type, result, scrape_stage, analysis_stage
		FROM votation_metadata
		WHERE id = ?
	`, votationID)

	m, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VotationMetadata{}, fmt.Errorf("%s: %w", votationID, ErrNotFound)
	}
	return m, err
}

// ListMetadata returns all votations ordered by date then id
func (s *Store) ListMetadata(ctx context.Context) ([]model.VotationMetadata, error) {
	return s.queryMetadata(ctx, `
		SELECT id, date, title, type, result, scrape_stage, analysis_stage
		FROM votation_metadata
		ORDER BY date, id
	`)
}

// ListUnscraped returns votations whose roll call has not been stored
func (s *Store) ListUnscraped(ctx context.Context) ([]model.VotationMetadata, error) {
	return s.queryMetadata(ctx, `
		SELECT id, date, title, type, result, scrape_stage, analysis_stage
		FROM votation_metadata
		WHERE scrape_stage = ?
		ORDER BY date, id
	`, string(model.StageUnscraped))
}

// LatestVotation returns the most recent scraped votation
func (s *Store) LatestVotation(ctx context.Context) (model.VotationMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, title, type, result, scrape_stage, analysis_stage
		FROM votation_metadata
		WHERE scrape_stage = ?
		ORDER BY date DESC, id DESC
		LIMIT 1
	`, string(model.StageScraped))

	m, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VotationMetadata{}, ErrNotFound
	}
	return m, err
}

func (s *Store) queryMetadata(ctx context.Context, query string, args ...any) ([]model.VotationMetadata, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	var out []model.VotationMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row scanner) (model.VotationMetadata, error) {
	var m model.VotationMetadata
	var date, scrape, analysis string
	if err := row.Scan(&m.ID, &date, &m.Title, &m.Type, &m.Result, &scrape, &analysis); err != nil {
		return model.VotationMetadata{}, err
	}
	if strings.TrimSpace(date) != "" {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return model.VotationMetadata{}, fmt.Errorf("parse date of %s: %w", m.ID, err)
		}
		m.Date = d
	}
	m.Scrape = model.ScrapeStage(scrape)
	m.Analysis = model.AnalysisStage(analysis)
	return m, nil
}
