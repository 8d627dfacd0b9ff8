package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/domain/recommendation"
	"github.com/geocoder89/skincareplus/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type fakeRecommendationsRepo struct {
	createFn     func(ctx context.Context, rec recommendation.Recommendation) (recommendation.Recommendation, error)
	getFn        func(ctx context.Context, id int64) (recommendation.Recommendation, error)
	byAnalysisFn func(ctx context.Context, analysisID int64) (recommendation.Recommendation, error)
	latestFn     func(ctx context.Context, userID int64) (recommendation.Recommendation, error)
	listFn       func(ctx context.Context, userID int64, limit int) ([]recommendation.Recommendation, error)
}

func (f *fakeRecommendationsRepo) Create(ctx context.Context, rec recommendation.Recommendation) (recommendation.Recommendation, error) {
	if f.createFn != nil {
		return f.createFn(ctx, rec)
	}
	return rec, nil
}

func (f *fakeRecommendationsRepo) GetByID(ctx context.Context, id int64) (recommendation.Recommendation, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return recommendation.Recommendation{}, recommendation.ErrNotFound
}

func (f *fakeRecommendationsRepo) GetByAnalysis(ctx context.Context, analysisID int64) (recommendation.Recommendation, error) {
	if f.byAnalysisFn != nil {
		return f.byAnalysisFn(ctx, analysisID)
	}
	return recommendation.Recommendation{}, recommendation.ErrNotFound
}

func (f *fakeRecommendationsRepo) LatestByUser(ctx context.Context, userID int64) (recommendation.Recommendation, error) {
	if f.latestFn != nil {
		return f.latestFn(ctx, userID)
	}
	return recommendation.Recommendation{}, recommendation.ErrNotFound
}

func (f *fakeRecommendationsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]recommendation.Recommendation, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, limit)
	}
	return []recommendation.Recommendation{}, nil
}

func setupRecommendationsRouter(repo handlers.RecommendationsRepo, analyses handlers.AnalysisGetter, caller *actorctx.Identity) *gin.Engine {
	r := gin.New()
	r.Use(asCaller(caller))

	h := handlers.NewRecommendationsHandler(repo, analyses)
	r.POST("/recommendations", h.Create)
	r.GET("/recommendations", h.List)
	r.GET("/recommendations/latest", h.Latest)
	r.GET("/recommendations/:id", h.Get)
	return r
}

func janesAnalyses() *fakeAnalysesRepo {
	return &fakeAnalysesRepo{
		getFn: func(_ context.Context, id int64) (analysis.SkinAnalysis, error) {
			if id == 1 {
				return analysis.SkinAnalysis{ID: 1, UserID: jane.UserID}, nil
			}
			return analysis.SkinAnalysis{}, analysis.ErrNotFound
		},
	}
}

func TestCreateRecommendation(t *testing.T) {
	cases := []struct {
		name    string
		caller  actorctx.Identity
		body    map[string]any
		repoErr error
		status  int
		code    string
	}{
		{"standalone", jane, map[string]any{"morningRoutine": "cleanse"}, nil, http.StatusCreated, ""},
		{"linked to own analysis", jane, map[string]any{"analysisId": 1}, nil, http.StatusCreated, ""},
		{"linked to foreign analysis", john, map[string]any{"analysisId": 1}, nil, http.StatusForbidden, "forbidden"},
		{"unknown analysis", jane, map[string]any{"analysisId": 5}, nil, http.StatusNotFound, "not_found"},
		{"analysis already has one", jane, map[string]any{"analysisId": 1}, recommendation.ErrAlreadyExists, http.StatusConflict, "recommendation_exists"},
		{"invalid analysis id", jane, map[string]any{"analysisId": 0}, nil, http.StatusBadRequest, "invalid_request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRecommendationsRepo{
				createFn: func(_ context.Context, rec recommendation.Recommendation) (recommendation.Recommendation, error) {
					if tc.repoErr != nil {
						return recommendation.Recommendation{}, tc.repoErr
					}
					if rec.UserID != tc.caller.UserID {
						t.Errorf("owner = %d, want %d", rec.UserID, tc.caller.UserID)
					}
					rec.ID = 10
					return rec, nil
				},
			}

			caller := tc.caller
			w, env := performRequest(t, setupRecommendationsRouter(repo, janesAnalyses(), &caller), http.MethodPost, "/recommendations", tc.body)
			if w.Code != tc.status {
				t.Fatalf("got %d, want %d body=%s", w.Code, tc.status, w.Body.String())
			}
			if errorCode(env) != tc.code {
				t.Fatalf("code = %q, want %q", errorCode(env), tc.code)
			}
		})
	}
}

func TestGetRecommendation_Ownership(t *testing.T) {
	repo := &fakeRecommendationsRepo{
		getFn: func(_ context.Context, id int64) (recommendation.Recommendation, error) {
			return recommendation.Recommendation{ID: id, UserID: jane.UserID, ProductRecommendations: []string{}}, nil
		},
	}

	for _, tc := range []struct {
		caller actorctx.Identity
		status int
	}{
		{jane, http.StatusOK},
		{admin, http.StatusOK},
		{john, http.StatusForbidden},
	} {
		caller := tc.caller
		w, _ := performRequest(t, setupRecommendationsRouter(repo, janesAnalyses(), &caller), http.MethodGet, "/recommendations/10", nil)
		if w.Code != tc.status {
			t.Fatalf("%s: got %d, want %d", tc.caller.Username, w.Code, tc.status)
		}
	}
}

func TestListRecommendations_Limit(t *testing.T) {
	var gotLimit int
	repo := &fakeRecommendationsRepo{
		listFn: func(_ context.Context, _ int64, limit int) ([]recommendation.Recommendation, error) {
			gotLimit = limit
			return []recommendation.Recommendation{}, nil
		},
	}
	r := setupRecommendationsRouter(repo, janesAnalyses(), &jane)

	w, _ := performRequest(t, r, http.MethodGet, "/recommendations", nil)
	if w.Code != http.StatusOK || gotLimit != 50 {
		t.Fatalf("got %d limit=%d", w.Code, gotLimit)
	}

	w, _ = performRequest(t, r, http.MethodGet, "/recommendations?limit=500", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("limit too large: got %d", w.Code)
	}

	w, _ = performRequest(t, r, http.MethodGet, "/recommendations/latest", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("latest without any: got %d", w.Code)
	}
}
