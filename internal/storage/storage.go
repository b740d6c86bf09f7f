package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/sales-dashboard-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures credential persistence needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Filter narrows report queries to a period. Zero fields are unset.
type Filter struct {
	Year  int
	Month int
}

// Totals is the result of summing measures over a filtered set.
type Totals struct {
	Count int64
	Sums  map[string]float64
}

// Group is one bucket of a group-by-dimension query.
type Group struct {
	Key  string
	Sums map[string]float64
}

// PeriodGroup is one bucket of a group-by-period query. Month is 0 when
// grouping by year only.
type PeriodGroup struct {
	Year  int
	Month int
	Sums  map[string]float64
}

// PageQuery selects one page of raw rows.
type PageQuery struct {
	Filter
	// Search is matched case-insensitively as a substring of any SearchFields dimension.
	Search       string
	SearchFields []string
	// OrderDimensions break ties after the period ordering, ascending.
	OrderDimensions []string
	Offset          int
	Limit           int
}

// SalesStore owns sale records for every dataset. Every call is scoped to one dataset name.
type SalesStore interface {
	// ReplaceAll atomically swaps the dataset's rows for records and returns the stored count.
	ReplaceAll(ctx context.Context, dataset string, records []models.SaleRecord) (int, error)
	Totals(ctx context.Context, dataset string, measures []string, f Filter) (Totals, error)
	// GroupByDimension returns buckets ordered by key ascending.
	GroupByDimension(ctx context.Context, dataset, dimension string, measures []string, f Filter) ([]Group, error)
	// GroupByPeriod returns buckets in chronological order.
	GroupByPeriod(ctx context.Context, dataset string, measures []string, byMonth bool, f Filter) ([]PeriodGroup, error)
	// Page returns the requested rows (most recent period first) and the filtered total.
	Page(ctx context.Context, dataset string, q PageQuery) ([]models.SaleRecord, int64, error)
	DistinctYears(ctx context.Context, dataset string) ([]int, error)
}

// SyncLogStore is the append-only audit trail of sync attempts.
type SyncLogStore interface {
	AppendSyncLog(ctx context.Context, entry models.SyncLog) (models.SyncLog, error)
	// RecentSyncLogs returns up to limit entries, newest first.
	RecentSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
}
