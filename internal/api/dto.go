package api

import (
	"github.com/starford/papernotes/internal/models"
	"github.com/starford/papernotes/internal/paperservice"
)

// PaperDetail is the full paper response type.
type PaperDetail = paperservice.PaperDetail

// PaperListResponse wraps paginated paper listings.
type PaperListResponse struct {
	Papers []models.Paper `json:"papers"`
	Total  int            `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []paperservice.SearchHit `json:"results"`
}

// GenerateResponse summarizes a pass 1 run.
type GenerateResponse struct {
	Unchanged bool     `json:"unchanged"`
	Rows      int      `json:"rows"`
	Created   []string `json:"created"`
	Existing  int      `json:"existing"`
	Blank     int      `json:"blank"`
	Skipped   int      `json:"skipped"`
}

// TagResponse summarizes a pass 2 run.
type TagResponse struct {
	Candidates int                 `json:"candidates"`
	Tagged     map[string][]string `json:"tagged"`
	Skipped    int                 `json:"skipped"`
}
