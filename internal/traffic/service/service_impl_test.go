package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"github.com/smallbiznis/sitebuilder/internal/traffic/repository"
	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordAndSummary(t *testing.T) {
	db, err := dbpkg.NewTest(&domain.TrafficLog{})
	require.NoError(t, err)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})
	ctx := context.Background()

	svc.Record(ctx, domain.RecordRequest{Path: "/packages", IPAddress: "10.0.0.1", Referrer: "https://google.com"})
	svc.Record(ctx, domain.RecordRequest{Path: "/packages", IPAddress: "10.0.0.2"})
	svc.Record(ctx, domain.RecordRequest{Path: "/orders", IPAddress: "10.0.0.1"})
	svc.Record(ctx, domain.RecordRequest{Path: "  "})

	clk.Advance(24 * time.Hour)
	svc.Record(ctx, domain.RecordRequest{Path: "/packages", IPAddress: "10.0.0.3"})

	summary, err := svc.Summary(ctx, domain.SummaryRequest{Days: 7})
	require.NoError(t, err)
	assert.EqualValues(t, 4, summary.TotalHits)
	assert.EqualValues(t, 3, summary.UniqueVisitors)
	require.NotEmpty(t, summary.TopPaths)
	assert.Equal(t, domain.Count{Key: "/packages", Total: 3}, summary.TopPaths[0])
	assert.Equal(t, []domain.Count{{Key: "https://google.com", Total: 1}}, summary.TopReferrers)
	assert.Len(t, summary.Daily, 2)

	today, err := svc.Summary(ctx, domain.SummaryRequest{Days: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, today.TotalHits)

	_, err = svc.Summary(ctx, domain.SummaryRequest{Days: 1000})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
