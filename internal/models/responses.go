package models

import "time"

// PredictionResponse is the body returned for a batch prediction request.
type PredictionResponse struct {
	Model     string             `json:"model"`
	Results   []PredictionResult `json:"results"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Timestamp time.Time          `json:"timestamp"`
}

// WindowPreview describes one train or test window of a previewed fold.
type WindowPreview struct {
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	First      time.Time `json:"first"`
	Last       time.Time `json:"last"`
	Size       int       `json:"size"`
}

// FoldPreview is one fold of a split preview.
type FoldPreview struct {
	Fold  int           `json:"fold"`
	Train WindowPreview `json:"train"`
	Test  WindowPreview `json:"test"`
}

// SplitPreviewResponse is the body returned for a split preview request.
type SplitPreviewResponse struct {
	Mode      string        `json:"mode"`
	Folds     []FoldPreview `json:"folds"`
	Count     int           `json:"count"`
	Timestamp time.Time     `json:"timestamp"`
}

// SeriesListResponse is the body returned when listing stored series.
type SeriesListResponse struct {
	Series    []SeriesInfo `json:"series"`
	Count     int          `json:"count"`
	Timestamp time.Time    `json:"timestamp"`
}

// StoreSeriesResponse reports how many observations a store request wrote.
type StoreSeriesResponse struct {
	SeriesID string `json:"series_id"`
	Stored   int64  `json:"stored"`
}
