package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const analysisColumns = `id, user_id, image_url, analysis_result, skin_concerns, confidence_score, skin_type_detected,
	acne_detected, dark_spots_detected, wrinkles_detected, dryness_detected, redness_detected, recommendations, created_at`

type AnalysesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAnalysesRepo(pool *pgxpool.Pool, prom *observability.Prom) *AnalysesRepo {
	return &AnalysesRepo{pool: pool, prom: prom}
}

func (r *AnalysesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanAnalysis(row pgx.Row) (analysis.SkinAnalysis, error) {
	var a analysis.SkinAnalysis

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ImageURL,
		&a.AnalysisResult,
		&a.SkinConcerns,
		&a.ConfidenceScore,
		&a.SkinTypeDetected,
		&a.AcneDetected,
		&a.DarkSpotsDetected,
		&a.WrinklesDetected,
		&a.DrynessDetected,
		&a.RednessDetected,
		&a.Recommendations,
		&a.CreatedAt,
	)

	if a.SkinConcerns == nil {
		a.SkinConcerns = []string{}
	}

	return a, err
}

func (r *AnalysesRepo) collect(ctx context.Context, op, query string, args ...interface{}) ([]analysis.SkinAnalysis, error) {
	output := make([]analysis.SkinAnalysis, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAnalysis(rows)
			if err != nil {
				return err
			}
			output = append(output, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *AnalysesRepo) Create(ctx context.Context, a analysis.SkinAnalysis) (out analysis.SkinAnalysis, err error) {
	err = r.observe("analyses.create", func() error {
		out, err = scanAnalysis(r.pool.QueryRow(ctx, `
			INSERT INTO skin_analyses (
				user_id, image_url, analysis_result, skin_concerns, confidence_score, skin_type_detected,
				acne_detected, dark_spots_detected, wrinkles_detected, dryness_detected, redness_detected,
				recommendations, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING `+analysisColumns,
			a.UserID, a.ImageURL, a.AnalysisResult, a.SkinConcerns, a.ConfidenceScore, a.SkinTypeDetected,
			a.AcneDetected, a.DarkSpotsDetected, a.WrinklesDetected, a.DrynessDetected, a.RednessDetected,
			a.Recommendations, a.CreatedAt,
		))
		return err
	})

	return out, err
}

func (r *AnalysesRepo) GetByID(ctx context.Context, id int64) (out analysis.SkinAnalysis, err error) {
	err = r.observe("analyses.get_by_id", func() error {
		out, err = scanAnalysis(r.pool.QueryRow(ctx, `SELECT `+analysisColumns+` FROM skin_analyses WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return analysis.SkinAnalysis{}, analysis.ErrNotFound
		}
		return analysis.SkinAnalysis{}, err
	}

	return out, nil
}

// ListByUser pages through a user's analyses newest first using the
// (created_at, id) keyset in f.
func (r *AnalysesRepo) ListByUser(ctx context.Context, userID int64, f analysis.ListFilter) ([]analysis.SkinAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM skin_analyses WHERE user_id = $1`
	args := []interface{}{userID}
	argsPosition := 2

	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argsPosition)
		args = append(args, *f.From)
		argsPosition++
	}

	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argsPosition)
		args = append(args, *f.To)
		argsPosition++
	}

	if f.SkinType != nil {
		query += fmt.Sprintf(" AND skin_type_detected = $%d", argsPosition)
		args = append(args, *f.SkinType)
		argsPosition++
	}

	if f.AcneDetected != nil {
		query += fmt.Sprintf(" AND acne_detected = $%d", argsPosition)
		args = append(args, *f.AcneDetected)
		argsPosition++
	}

	if f.AfterCreatedAt != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argsPosition, argsPosition+1)
		args = append(args, *f.AfterCreatedAt, f.AfterID)
		argsPosition += 2
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argsPosition)
	args = append(args, limit)

	return r.collect(ctx, "analyses.list_by_user", query, args...)
}

func (r *AnalysesRepo) LatestByUser(ctx context.Context, userID int64) (out analysis.SkinAnalysis, err error) {
	err = r.observe("analyses.latest_by_user", func() error {
		out, err = scanAnalysis(r.pool.QueryRow(ctx,
			`SELECT `+analysisColumns+` FROM skin_analyses WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return analysis.SkinAnalysis{}, analysis.ErrNotFound
		}
		return analysis.SkinAnalysis{}, err
	}

	return out, nil
}

func (r *AnalysesRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.observe("analyses.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM skin_analyses WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return analysis.ErrNotFound
	}

	return nil
}

// HighConfidence lists analyses of every user scoring at least minScore.
func (r *AnalysesRepo) HighConfidence(ctx context.Context, minScore float64, limit int) ([]analysis.SkinAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}

	return r.collect(ctx, "analyses.high_confidence",
		`SELECT `+analysisColumns+` FROM skin_analyses
		WHERE confidence_score >= $1
		ORDER BY confidence_score DESC, created_at DESC
		LIMIT $2`, minScore, limit)
}

func (r *AnalysesRepo) StatsBySkinType(ctx context.Context) ([]analysis.SkinTypeStat, error) {
	output := make([]analysis.SkinTypeStat, 0)

	err := r.observe("analyses.stats_by_skin_type", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT skin_type_detected, COUNT(*), AVG(confidence_score)
			FROM skin_analyses
			GROUP BY skin_type_detected
			ORDER BY COUNT(*) DESC, skin_type_detected ASC NULLS LAST`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s analysis.SkinTypeStat
			if err := rows.Scan(&s.SkinType, &s.Count, &s.AvgConfidence); err != nil {
				return err
			}
			output = append(output, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}
