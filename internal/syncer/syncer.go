// Package syncer runs one import cycle: fetch the sheet, map rows for the
// active dataset, replace the stored rows and record the outcome in the sync log.
package syncer

import (
	"context"
	"time"

	"github.com/hongminglow/sales-dashboard-be/internal/dataset"
	"github.com/hongminglow/sales-dashboard-be/internal/events"
	"github.com/hongminglow/sales-dashboard-be/internal/logging"
	"github.com/hongminglow/sales-dashboard-be/internal/models"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

// RecentLogLimit is how many sync log entries RecentLogs returns.
const RecentLogLimit = 10

// Source yields header-keyed rows.
type Source interface {
	FetchRows(ctx context.Context) ([]map[string]string, error)
}

// Archiver keeps a raw copy of fetched rows.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, dataset string, rows []map[string]string, at time.Time) (string, error)
}

// Notifier announces finished syncs.
type Notifier interface {
	PublishSync(ctx context.Context, event events.SyncEvent) error
}

// Invalidator drops cached reports.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Error is returned when a sync attempt fails. Message is safe to show to callers.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Result reports a successful sync.
type Result struct {
	Count int
}

type Option func(*Syncer)

func WithArchiver(a Archiver) Option { return func(s *Syncer) { s.archiver = a } }

func WithNotifier(n Notifier) Option { return func(s *Syncer) { s.notifier = n } }

func WithInvalidator(i Invalidator) Option { return func(s *Syncer) { s.invalidator = i } }

func WithClock(now func() time.Time) Option { return func(s *Syncer) { s.now = now } }

// Syncer imports one dataset. Optional collaborators left nil are skipped.
type Syncer struct {
	source      Source
	def         *dataset.Definition
	sales       storage.SalesStore
	logs        storage.SyncLogStore
	log         logging.Logger
	archiver    Archiver
	notifier    Notifier
	invalidator Invalidator
	now         func() time.Time
}

func New(source Source, def *dataset.Definition, sales storage.SalesStore, logs storage.SyncLogStore, log logging.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		source: source,
		def:    def,
		sales:  sales,
		logs:   logs,
		log:    log.With("component", "syncer", "dataset", def.Name),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dataset is the name of the dataset this syncer writes.
func (s *Syncer) Dataset() string { return s.def.Name }

// Run performs one sync. On failure nothing stored is changed, an error entry
// is appended to the sync log and an *Error is returned.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	started := s.now()

	rows, err := s.source.FetchRows(ctx)
	if err != nil {
		return Result{}, s.fail(ctx, err)
	}

	if s.archiver != nil {
		if key, err := s.archiver.ArchiveSnapshot(ctx, s.def.Name, rows, started); err != nil {
			s.log.Warn(ctx, "snapshot archive failed", "error", err)
		} else {
			s.log.Info(ctx, "snapshot archived", "key", key)
		}
	}

	records, err := s.def.MapAll(rows, started)
	if err != nil {
		return Result{}, s.fail(ctx, err)
	}

	count, err := s.sales.ReplaceAll(ctx, s.def.Name, records)
	if err != nil {
		return Result{}, s.fail(ctx, err)
	}

	entry := models.SyncLog{RowsCount: count, Status: models.SyncStatusSuccess, SyncedAt: s.now().UTC()}
	if _, err := s.logs.AppendSyncLog(ctx, entry); err != nil {
		s.log.Error(ctx, "write sync log failed", "error", err)
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.log.Warn(ctx, "cache invalidation failed", "error", err)
		}
	}
	s.publish(ctx, entry)

	s.log.Info(ctx, "sync finished", "rows", count, "took", time.Since(started).String())
	return Result{Count: count}, nil
}

// RecentLogs returns the latest sync log entries, newest first.
func (s *Syncer) RecentLogs(ctx context.Context) ([]models.SyncLog, error) {
	return s.logs.RecentSyncLogs(ctx, RecentLogLimit)
}

func (s *Syncer) fail(ctx context.Context, cause error) error {
	s.log.Error(ctx, "sync failed", "error", cause)
	entry := models.SyncLog{Status: models.SyncStatusError, Message: cause.Error(), SyncedAt: s.now().UTC()}
	if _, err := s.logs.AppendSyncLog(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Error(ctx, "write sync log failed", "error", err)
	}
	s.publish(ctx, entry)
	return &Error{Message: cause.Error(), Err: cause}
}

func (s *Syncer) publish(ctx context.Context, entry models.SyncLog) {
	if s.notifier == nil {
		return
	}
	event := events.SyncEvent{
		Dataset:  s.def.Name,
		Status:   entry.Status,
		Count:    entry.RowsCount,
		Message:  entry.Message,
		SyncedAt: entry.SyncedAt,
	}
	if err := s.notifier.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn(ctx, "publish sync event failed", "error", err)
	}
}
