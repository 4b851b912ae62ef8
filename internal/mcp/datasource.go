package mcp

import (
	"context"
	"time"

	"github.com/liftlog/liftlog/internal/client"
	"github.com/liftlog/liftlog/internal/stats"
)

// DataSource abstracts the stats layer for MCP tools. Both *stats.Aggregator
// (local, straight off the database) and *client.Client (remote via the REST
// API) satisfy this interface.
type DataSource interface {
	Overview(ctx context.Context, userID int, start, end time.Time) (*stats.Overview, error)
	Trend(ctx context.Context, userID int, start, end time.Time, metric string) (*stats.TrendSeries, error)
	PersonalRecords(ctx context.Context, userID int) ([]stats.PersonalRecord, error)
	MuscleGroups(ctx context.Context, userID int, start, end time.Time) ([]stats.MuscleGroupActivity, error)
	Summary(ctx context.Context, userID int, start, end time.Time) (*stats.Summary, error)
}

var (
	_ DataSource = (*stats.Aggregator)(nil)
	_ DataSource = (*client.Client)(nil)
)
