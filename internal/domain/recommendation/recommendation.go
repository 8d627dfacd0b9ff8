package recommendation

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("recommendation not found")
	ErrAlreadyExists = errors.New("analysis already has a recommendation")
)

type Recommendation struct {
	ID                     int64     `json:"id"`
	UserID                 int64     `json:"userId"`
	AnalysisID             *int64    `json:"analysisId,omitempty"`
	MorningRoutine         *string   `json:"morningRoutine,omitempty"`
	EveningRoutine         *string   `json:"eveningRoutine,omitempty"`
	ProductRecommendations []string  `json:"productRecommendations"`
	DietAdvice             *string   `json:"dietAdvice,omitempty"`
	LifestyleAdvice        *string   `json:"lifestyleAdvice,omitempty"`
	Dos                    *string   `json:"dos,omitempty"`
	Donts                  *string   `json:"donts,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

type CreateRequest struct {
	AnalysisID             *int64   `json:"analysisId" binding:"omitempty,min=1"`
	MorningRoutine         *string  `json:"morningRoutine"`
	EveningRoutine         *string  `json:"eveningRoutine"`
	ProductRecommendations []string `json:"productRecommendations" binding:"omitempty,max=50,dive,min=1,max=200"`
	DietAdvice             *string  `json:"dietAdvice"`
	LifestyleAdvice        *string  `json:"lifestyleAdvice"`
	Dos                    *string  `json:"dos"`
	Donts                  *string  `json:"donts"`
}

func NewFromRequest(userID int64, req CreateRequest) Recommendation {
	products := req.ProductRecommendations
	if products == nil {
		products = []string{}
	}

	return Recommendation{
		UserID:                 userID,
		AnalysisID:             req.AnalysisID,
		MorningRoutine:         req.MorningRoutine,
		EveningRoutine:         req.EveningRoutine,
		ProductRecommendations: products,
		DietAdvice:             req.DietAdvice,
		LifestyleAdvice:        req.LifestyleAdvice,
		Dos:                    req.Dos,
		Donts:                  req.Donts,
		CreatedAt:              time.Now().UTC(),
	}
}
