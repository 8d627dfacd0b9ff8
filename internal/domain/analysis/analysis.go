package analysis

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("skin analysis not found")

// SkinAnalysis stores results computed outside this service. Nothing here
// interprets the image; the fields are persisted as submitted.
type SkinAnalysis struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"userId"`
	ImageURL          *string   `json:"imageUrl,omitempty"`
	AnalysisResult    *string   `json:"analysisResult,omitempty"`
	SkinConcerns      []string  `json:"skinConcerns"`
	ConfidenceScore   *float64  `json:"confidenceScore,omitempty"`
	SkinTypeDetected  *string   `json:"skinTypeDetected,omitempty"`
	AcneDetected      bool      `json:"acneDetected"`
	DarkSpotsDetected bool      `json:"darkSpotsDetected"`
	WrinklesDetected  bool      `json:"wrinklesDetected"`
	DrynessDetected   bool      `json:"drynessDetected"`
	RednessDetected   bool      `json:"rednessDetected"`
	Recommendations   *string   `json:"recommendations,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type CreateRequest struct {
	ImageURL          *string  `json:"imageUrl" binding:"omitempty,url,max=500"`
	AnalysisResult    *string  `json:"analysisResult"`
	SkinConcerns      []string `json:"skinConcerns" binding:"omitempty,max=20,dive,min=1,max=60"`
	ConfidenceScore   *float64 `json:"confidenceScore" binding:"omitempty,min=0,max=100"`
	SkinTypeDetected  *string  `json:"skinTypeDetected" binding:"omitempty,max=50"`
	AcneDetected      bool     `json:"acneDetected"`
	DarkSpotsDetected bool     `json:"darkSpotsDetected"`
	WrinklesDetected  bool     `json:"wrinklesDetected"`
	DrynessDetected   bool     `json:"drynessDetected"`
	RednessDetected   bool     `json:"rednessDetected"`
	Recommendations   *string  `json:"recommendations"`
}

type ListFilter struct {
	From         *time.Time
	To           *time.Time
	SkinType     *string
	AcneDetected *bool
	Limit        int

	// keyset position: rows strictly older than (AfterCreatedAt, AfterID)
	AfterCreatedAt *time.Time
	AfterID        int64
}

// SkinTypeStat is one row of the per-skin-type statistics.
type SkinTypeStat struct {
	SkinType      *string  `json:"skinType"`
	Count         int64    `json:"count"`
	AvgConfidence *float64 `json:"avgConfidence"`
}

func NewFromRequest(userID int64, req CreateRequest) SkinAnalysis {
	concerns := req.SkinConcerns
	if concerns == nil {
		concerns = []string{}
	}

	return SkinAnalysis{
		UserID:            userID,
		ImageURL:          req.ImageURL,
		AnalysisResult:    req.AnalysisResult,
		SkinConcerns:      concerns,
		ConfidenceScore:   req.ConfidenceScore,
		SkinTypeDetected:  req.SkinTypeDetected,
		AcneDetected:      req.AcneDetected,
		DarkSpotsDetected: req.DarkSpotsDetected,
		WrinklesDetected:  req.WrinklesDetected,
		DrynessDetected:   req.DrynessDetected,
		RednessDetected:   req.RednessDetected,
		Recommendations:   req.Recommendations,
		CreatedAt:         time.Now().UTC(),
	}
}
