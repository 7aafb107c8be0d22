package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Record stores a hit. Failures are logged and swallowed.
	Record(ctx context.Context, entry RecordRequest)
	Summary(ctx context.Context, req SummaryRequest) (*Summary, error)
}

type RecordRequest struct {
	Path      string
	Referrer  string
	UserAgent string
	IPAddress string
}

type SummaryRequest struct {
	Days int `form:"days"`
}

type Summary struct {
	Days           int     `json:"days"`
	TotalHits      int64   `json:"total_hits"`
	UniqueVisitors int64   `json:"unique_visitors"`
	TopPaths       []Count `json:"top_paths"`
	TopReferrers   []Count `json:"top_referrers"`
	Daily          []Count `json:"daily"`
}

var ErrInvalidRange = errors.New("invalid_range")
