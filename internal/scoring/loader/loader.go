// internal/scoring/loader/loader.go
package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/scoring"

	apperrors "assessment-workers/internal/common/errors"
)

// Queries against the seeded config tables. "order" is quoted because it
// is a reserved word.
const (
	queryDimensions = `SELECT id, "order", section, short_label, name, weight FROM dimensions`
	queryQuestions  = `SELECT id, "order", dimension_id FROM questions`
	queryOptions    = `SELECT id, question_id, score FROM options`
	queryAppSetting = `SELECT value FROM app_settings WHERE key = $1`
)

// DB is the database surface the loader needs. *sql.DB satisfies it.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Loader fetches raw scoring config from Postgres and normalizes it.
type Loader struct {
	db     DB
	logger logger.Logger
}

func New(db DB, log logger.Logger) *Loader {
	return &Loader{db: db, logger: log}
}

func (l *Loader) fetchAppSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := l.db.QueryRowContext(ctx, queryAppSetting, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewConfigMissingError(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app_settings key %s: %w", key, err)
	}
	if len(value) == 0 {
		return nil, apperrors.NewConfigMissingError(key)
	}
	return json.RawMessage(value), nil
}

func (l *Loader) fetchDimensions(ctx context.Context) ([]scoring.DimensionRow, error) {
	rows, err := l.db.QueryContext(ctx, queryDimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to query dimensions: %w", err)
	}
	defer rows.Close()

	var out []scoring.DimensionRow
	for rows.Next() {
		var d scoring.DimensionRow
		var weight sql.NullFloat64
		if err := rows.Scan(&d.ID, &d.Order, &d.Section, &d.ShortLabel, &d.Name, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan dimension row: %w", err)
		}
		if weight.Valid {
			d.Weight = weight.Float64
		} else {
			d.Weight = 1
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (l *Loader) fetchQuestions(ctx context.Context) ([]scoring.QuestionRow, error) {
	rows, err := l.db.QueryContext(ctx, queryQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var out []scoring.QuestionRow
	for rows.Next() {
		var q scoring.QuestionRow
		if err := rows.Scan(&q.ID, &q.Order, &q.DimensionID); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (l *Loader) fetchOptions(ctx context.Context) ([]scoring.OptionRow, error) {
	rows, err := l.db.QueryContext(ctx, queryOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var out []scoring.OptionRow
	for rows.Next() {
		var o scoring.OptionRow
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Score); err != nil {
			return nil, fmt.Errorf("failed to scan option row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LoadFresh fetches and normalizes the full scoring config, bypassing
// any cache. Structural defects fail with CONFIG_INVALID/CONFIG_MISSING.
func (l *Loader) LoadFresh(ctx context.Context) (*scoring.Config, error) {
	dims, err := l.fetchDimensions(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := l.fetchQuestions(ctx)
	if err != nil {
		return nil, err
	}
	options, err := l.fetchOptions(ctx)
	if err != nil {
		return nil, err
	}

	levelsDoc, err := l.fetchAppSetting(ctx, "levels")
	if err != nil {
		return nil, err
	}
	rulesDoc, err := l.fetchAppSetting(ctx, "scoring_rules")
	if err != nil {
		return nil, err
	}

	cfg, err := scoring.NormalizeConfig(scoring.NormalizeInput{
		Dimensions: dims,
		Questions:  questions,
		Options:    options,
		LevelsDoc:  levelsDoc,
		RulesDoc:   rulesDoc,
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("scoring config loaded", map[string]interface{}{
		"dimensions": len(cfg.Dimensions),
		"questions":  len(cfg.Questions),
		"levels":     len(cfg.Levels),
		"cta_rules":  len(cfg.Rules.CtaRules),
	})

	return cfg, nil
}
