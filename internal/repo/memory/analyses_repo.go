package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/domain/recommendation"
)

// AnalysesRepo also owns the recommendations so that deleting an analysis
// removes its recommendation, as the postgres foreign key does.
type AnalysesRepo struct {
	mu      sync.RWMutex
	items   map[int64]analysis.SkinAnalysis
	nextID  int64
	recs    map[int64]recommendation.Recommendation
	nextRec int64
}

func NewAnalysesRepo() *AnalysesRepo {
	return &AnalysesRepo{
		items: make(map[int64]analysis.SkinAnalysis),
		recs:  make(map[int64]recommendation.Recommendation),
	}
}

func (r *AnalysesRepo) Create(_ context.Context, a analysis.SkinAnalysis) (analysis.SkinAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	a.ID = r.nextID
	r.items[a.ID] = a

	return a, nil
}

func (r *AnalysesRepo) GetByID(_ context.Context, id int64) (analysis.SkinAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return analysis.SkinAnalysis{}, analysis.ErrNotFound
	}
	return a, nil
}

func newestFirst(out []analysis.SkinAnalysis) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
}

func (r *AnalysesRepo) ListByUser(_ context.Context, userID int64, f analysis.ListFilter) ([]analysis.SkinAnalysis, error) {
	r.mu.RLock()
	out := make([]analysis.SkinAnalysis, 0)
	for _, a := range r.items {
		if a.UserID != userID {
			continue
		}
		if f.From != nil && a.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && a.CreatedAt.After(*f.To) {
			continue
		}
		if f.SkinType != nil && (a.SkinTypeDetected == nil || *a.SkinTypeDetected != *f.SkinType) {
			continue
		}
		if f.AcneDetected != nil && a.AcneDetected != *f.AcneDetected {
			continue
		}
		if f.AfterCreatedAt != nil {
			older := a.CreatedAt.Before(*f.AfterCreatedAt) ||
				(a.CreatedAt.Equal(*f.AfterCreatedAt) && a.ID < f.AfterID)
			if !older {
				continue
			}
		}
		out = append(out, a)
	}
	r.mu.RUnlock()

	newestFirst(out)

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *AnalysesRepo) LatestByUser(ctx context.Context, userID int64) (analysis.SkinAnalysis, error) {
	list, err := r.ListByUser(ctx, userID, analysis.ListFilter{Limit: 1})
	if err != nil {
		return analysis.SkinAnalysis{}, err
	}
	if len(list) == 0 {
		return analysis.SkinAnalysis{}, analysis.ErrNotFound
	}
	return list[0], nil
}

func (r *AnalysesRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return analysis.ErrNotFound
	}
	delete(r.items, id)

	for recID, rec := range r.recs {
		if rec.AnalysisID != nil && *rec.AnalysisID == id {
			delete(r.recs, recID)
		}
	}
	return nil
}

func (r *AnalysesRepo) HighConfidence(_ context.Context, minScore float64, limit int) ([]analysis.SkinAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	out := make([]analysis.SkinAnalysis, 0)
	for _, a := range r.items {
		if a.ConfidenceScore != nil && *a.ConfidenceScore >= minScore {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if *out[i].ConfidenceScore == *out[j].ConfidenceScore {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return *out[i].ConfidenceScore > *out[j].ConfidenceScore
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AnalysesRepo) StatsBySkinType(_ context.Context) ([]analysis.SkinTypeStat, error) {
	type acc struct {
		skinType *string
		count    int64
		sum      float64
		scored   int
	}

	r.mu.RLock()
	groups := map[string]*acc{}
	for _, a := range r.items {
		key := "\x00"
		if a.SkinTypeDetected != nil {
			key = *a.SkinTypeDetected
		}
		g, ok := groups[key]
		if !ok {
			g = &acc{skinType: a.SkinTypeDetected}
			groups[key] = g
		}
		g.count++
		if a.ConfidenceScore != nil {
			g.sum += *a.ConfidenceScore
			g.scored++
		}
	}
	r.mu.RUnlock()

	out := make([]analysis.SkinTypeStat, 0, len(groups))
	for _, g := range groups {
		s := analysis.SkinTypeStat{SkinType: g.skinType, Count: g.count}
		if g.scored > 0 {
			avg := g.sum / float64(g.scored)
			s.AvgConfidence = &avg
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].SkinType == nil || out[j].SkinType == nil {
			return out[j].SkinType == nil && out[i].SkinType != nil
		}
		return *out[i].SkinType < *out[j].SkinType
	})

	return out, nil
}

// Recommendations returns a view over the recommendations stored alongside
// the analyses.
func (r *AnalysesRepo) Recommendations() *RecommendationsRepo {
	return &RecommendationsRepo{r: r}
}
