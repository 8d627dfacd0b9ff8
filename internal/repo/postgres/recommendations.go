package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/domain/recommendation"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recommendationColumns = `id, user_id, analysis_id, morning_routine, evening_routine, product_recommendations,
	diet_advice, lifestyle_advice, dos, donts, created_at`

type RecommendationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRecommendationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RecommendationsRepo {
	return &RecommendationsRepo{pool: pool, prom: prom}
}

func (r *RecommendationsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanRecommendation(row pgx.Row) (recommendation.Recommendation, error) {
	var rec recommendation.Recommendation

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.AnalysisID,
		&rec.MorningRoutine,
		&rec.EveningRoutine,
		&rec.ProductRecommendations,
		&rec.DietAdvice,
		&rec.LifestyleAdvice,
		&rec.Dos,
		&rec.Donts,
		&rec.CreatedAt,
	)

	if rec.ProductRecommendations == nil {
		rec.ProductRecommendations = []string{}
	}

	return rec, err
}

func (r *RecommendationsRepo) getOne(ctx context.Context, op, where string, arg any) (out recommendation.Recommendation, err error) {
	err = r.observe(op, func() error {
		out, err = scanRecommendation(r.pool.QueryRow(ctx, `SELECT `+recommendationColumns+` FROM recommendations WHERE `+where, arg))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recommendation.Recommendation{}, recommendation.ErrNotFound
		}
		return recommendation.Recommendation{}, err
	}

	return out, nil
}

func (r *RecommendationsRepo) Create(ctx context.Context, rec recommendation.Recommendation) (out recommendation.Recommendation, err error) {
	err = r.observe("recommendations.create", func() error {
		out, err = scanRecommendation(r.pool.QueryRow(ctx, `
			INSERT INTO recommendations (
				user_id, analysis_id, morning_routine, evening_routine, product_recommendations,
				diet_advice, lifestyle_advice, dos, donts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING `+recommendationColumns,
			rec.UserID, rec.AnalysisID, rec.MorningRoutine, rec.EveningRoutine, rec.ProductRecommendations,
			rec.DietAdvice, rec.LifestyleAdvice, rec.Dos, rec.Donts, rec.CreatedAt,
		))
		return err
	})

	if err != nil {
		switch violatedConstraint(err) {
		case "recommendations_analysis_key":
			return recommendation.Recommendation{}, recommendation.ErrAlreadyExists
		case "recommendations_analysis_id_fkey":
			return recommendation.Recommendation{}, analysis.ErrNotFound
		}
		return recommendation.Recommendation{}, err
	}

	return out, nil
}

func (r *RecommendationsRepo) GetByID(ctx context.Context, id int64) (recommendation.Recommendation, error) {
	return r.getOne(ctx, "recommendations.get_by_id", `id = $1`, id)
}

func (r *RecommendationsRepo) GetByAnalysis(ctx context.Context, analysisID int64) (recommendation.Recommendation, error) {
	return r.getOne(ctx, "recommendations.get_by_analysis", `analysis_id = $1`, analysisID)
}

func (r *RecommendationsRepo) LatestByUser(ctx context.Context, userID int64) (recommendation.Recommendation, error) {
	return r.getOne(ctx, "recommendations.latest_by_user", `user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
}

func (r *RecommendationsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]recommendation.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	output := make([]recommendation.Recommendation, 0)

	err := r.observe("recommendations.list_by_user", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+recommendationColumns+` FROM recommendations
			WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecommendation(rows)
			if err != nil {
				return err
			}
			output = append(output, rec)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}
