package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/domain/recommendation"
	"github.com/gin-gonic/gin"
)

type RecommendationsRepo interface {
	Create(ctx context.Context, rec recommendation.Recommendation) (recommendation.Recommendation, error)
	GetByID(ctx context.Context, id int64) (recommendation.Recommendation, error)
	GetByAnalysis(ctx context.Context, analysisID int64) (recommendation.Recommendation, error)
	LatestByUser(ctx context.Context, userID int64) (recommendation.Recommendation, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]recommendation.Recommendation, error)
}

// AnalysisGetter is the slice of the analyses repo needed to check that a
// referenced analysis belongs to the caller.
type AnalysisGetter interface {
	GetByID(ctx context.Context, id int64) (analysis.SkinAnalysis, error)
}

type RecommendationsHandler struct {
	repo     RecommendationsRepo
	analyses AnalysisGetter
}

func NewRecommendationsHandler(repo RecommendationsRepo, analyses AnalysisGetter) *RecommendationsHandler {
	return &RecommendationsHandler{repo: repo, analyses: analyses}
}

func (h *RecommendationsHandler) Create(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var req recommendation.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if req.AnalysisID != nil {
		a, err := h.analyses.GetByID(cctx, *req.AnalysisID)
		if err != nil {
			if errors.Is(err, analysis.ErrNotFound) {
				RespondNotFound(ctx, "Skin analysis not found")
				return
			}
			RespondInternal(ctx, "Could not create recommendation", err)
			return
		}
		if a.UserID != id.UserID {
			RespondForbidden(ctx, "You do not have access to this skin analysis")
			return
		}
	}

	rec, err := h.repo.Create(cctx, recommendation.NewFromRequest(id.UserID, req))
	if err != nil {
		switch {
		case errors.Is(err, recommendation.ErrAlreadyExists):
			RespondConflict(ctx, "recommendation_exists", "This skin analysis already has a recommendation")
		case errors.Is(err, analysis.ErrNotFound):
			RespondNotFound(ctx, "Skin analysis not found")
		default:
			RespondInternal(ctx, "Could not create recommendation", err)
		}
		return
	}

	RespondOK(ctx, http.StatusCreated, "Recommendation created successfully", rec)
}

func (h *RecommendationsHandler) List(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 50)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, id.UserID, limit)
	if err != nil {
		RespondInternal(ctx, "Could not list recommendations", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{
		Success: true,
		Message: "Recommendations retrieved",
		Data:    gin.H{"items": items, "count": len(items)},
	})
}

func (h *RecommendationsHandler) Latest(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	rec, err := h.repo.LatestByUser(cctx, id.UserID)
	if err != nil {
		if errors.Is(err, recommendation.ErrNotFound) {
			RespondNotFound(ctx, "No recommendation found")
			return
		}
		RespondInternal(ctx, "Could not fetch latest recommendation", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Latest recommendation retrieved", rec)
}

func (h *RecommendationsHandler) Get(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	recID, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	rec, err := h.repo.GetByID(cctx, recID)
	if err != nil {
		if errors.Is(err, recommendation.ErrNotFound) {
			RespondNotFound(ctx, "Recommendation not found")
			return
		}
		RespondInternal(ctx, "Could not fetch recommendation", err)
		return
	}

	if !caller.CanAccess(rec.UserID) {
		RespondForbidden(ctx, "You do not have access to this recommendation")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{Success: true, Message: "Recommendation retrieved", Data: rec})
}
