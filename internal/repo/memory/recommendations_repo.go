package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/domain/recommendation"
)

type RecommendationsRepo struct {
	r *AnalysesRepo
}

func (rr *RecommendationsRepo) Create(_ context.Context, rec recommendation.Recommendation) (recommendation.Recommendation, error) {
	r := rr.r
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.AnalysisID != nil {
		if _, ok := r.items[*rec.AnalysisID]; !ok {
			return recommendation.Recommendation{}, analysis.ErrNotFound
		}
		for _, existing := range r.recs {
			if existing.AnalysisID != nil && *existing.AnalysisID == *rec.AnalysisID {
				return recommendation.Recommendation{}, recommendation.ErrAlreadyExists
			}
		}
	}

	r.nextRec++
	rec.ID = r.nextRec
	r.recs[rec.ID] = rec

	return rec, nil
}

func (rr *RecommendationsRepo) GetByID(_ context.Context, id int64) (recommendation.Recommendation, error) {
	rr.r.mu.RLock()
	defer rr.r.mu.RUnlock()

	rec, ok := rr.r.recs[id]
	if !ok {
		return recommendation.Recommendation{}, recommendation.ErrNotFound
	}
	return rec, nil
}

func (rr *RecommendationsRepo) GetByAnalysis(_ context.Context, analysisID int64) (recommendation.Recommendation, error) {
	rr.r.mu.RLock()
	defer rr.r.mu.RUnlock()

	for _, rec := range rr.r.recs {
		if rec.AnalysisID != nil && *rec.AnalysisID == analysisID {
			return rec, nil
		}
	}
	return recommendation.Recommendation{}, recommendation.ErrNotFound
}

func (rr *RecommendationsRepo) ListByUser(_ context.Context, userID int64, limit int) ([]recommendation.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	rr.r.mu.RLock()
	out := make([]recommendation.Recommendation, 0)
	for _, rec := range rr.r.recs {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	rr.r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (rr *RecommendationsRepo) LatestByUser(ctx context.Context, userID int64) (recommendation.Recommendation, error) {
	list, err := rr.ListByUser(ctx, userID, 1)
	if err != nil {
		return recommendation.Recommendation{}, err
	}
	if len(list) == 0 {
		return recommendation.Recommendation{}, recommendation.ErrNotFound
	}
	return list[0], nil
}
