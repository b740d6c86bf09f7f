// Package memory is an in-process implementation of the storage interfaces.
// It backs STORAGE_DRIVER=memory and the handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/sales-dashboard-be/internal/models"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.SalesStore   = (*Store)(nil)
	_ storage.SyncLogStore = (*Store)(nil)
)

// Store keeps users, sale records and sync logs in memory.
type Store struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	sales   map[string][]models.SaleRecord
	logs    []models.SyncLog
	nextID  int64
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		sales:   make(map[string][]models.SaleRecord),
		now:     time.Now,
	}
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return user, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) ReplaceAll(_ context.Context, dataset string, records []models.SaleRecord) (int, error) {
	rows := make([]models.SaleRecord, len(records))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range records {
		s.nextID++
		rec.ID = s.nextID
		rec.Dataset = dataset
		rows[i] = rec
	}
	s.sales[dataset] = rows
	return len(rows), nil
}

func (s *Store) Totals(_ context.Context, dataset string, measures []string, f storage.Filter) (storage.Totals, error) {
	out := storage.Totals{Sums: zeroSums(measures)}
	for _, rec := range s.filtered(dataset, f) {
		out.Count++
		addSums(out.Sums, rec, measures)
	}
	return out, nil
}

func (s *Store) GroupByDimension(_ context.Context, dataset, dimension string, measures []string, f storage.Filter) ([]storage.Group, error) {
	idx := map[string]int{}
	var groups []storage.Group
	for _, rec := range s.filtered(dataset, f) {
		key := rec.Dimension(dimension)
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, storage.Group{Key: key, Sums: zeroSums(measures)})
		}
		addSums(groups[i].Sums, rec, measures)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Key < groups[b].Key })
	return groups, nil
}

func (s *Store) GroupByPeriod(_ context.Context, dataset string, measures []string, byMonth bool, f storage.Filter) ([]storage.PeriodGroup, error) {
	type bucket struct{ year, month int }
	idx := map[bucket]int{}
	var groups []storage.PeriodGroup
	for _, rec := range s.filtered(dataset, f) {
		b := bucket{year: rec.Year}
		if byMonth {
			b.month = rec.Month
		}
		i, ok := idx[b]
		if !ok {
			i = len(groups)
			idx[b] = i
			groups = append(groups, storage.PeriodGroup{Year: b.year, Month: b.month, Sums: zeroSums(measures)})
		}
		addSums(groups[i].Sums, rec, measures)
	}
	sort.Slice(groups, func(a, b int) bool {
		if groups[a].Year != groups[b].Year {
			return groups[a].Year < groups[b].Year
		}
		return groups[a].Month < groups[b].Month
	})
	return groups, nil
}

func (s *Store) Page(_ context.Context, dataset string, q storage.PageQuery) ([]models.SaleRecord, int64, error) {
	rows := s.filtered(dataset, q.Filter)
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		matched := rows[:0]
		for _, rec := range rows {
			for _, field := range q.SearchFields {
				if strings.Contains(strings.ToLower(rec.Dimension(field)), needle) {
					matched = append(matched, rec)
					break
				}
			}
		}
		rows = matched
	}
	sort.SliceStable(rows, func(a, b int) bool { return lessRecent(rows[a], rows[b], q.OrderDimensions) })

	total := int64(len(rows))
	if q.Offset < 0 || q.Offset >= len(rows) {
		return []models.SaleRecord{}, total, nil
	}
	end := len(rows)
	if q.Limit > 0 && q.Limit < end-q.Offset {
		end = q.Offset + q.Limit
	}
	return rows[q.Offset:end], total, nil
}

func (s *Store) DistinctYears(_ context.Context, dataset string) ([]int, error) {
	seen := map[int]bool{}
	years := []int{}
	for _, rec := range s.filtered(dataset, storage.Filter{}) {
		if !seen[rec.Year] {
			seen[rec.Year] = true
			years = append(years, rec.Year)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (s *Store) AppendSyncLog(_ context.Context, entry models.SyncLog) (models.SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = s.now().UTC()
	}
	s.logs = append(s.logs, entry)
	return entry, nil
}

func (s *Store) RecentSyncLogs(_ context.Context, limit int) ([]models.SyncLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SyncLog, 0, limit)
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

// filtered returns a copy of the dataset rows matching f.
func (s *Store) filtered(dataset string, f storage.Filter) []models.SaleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SaleRecord
	for _, rec := range s.sales[dataset] {
		if f.Year != 0 && rec.Year != f.Year {
			continue
		}
		if f.Month != 0 && rec.Month != f.Month {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// lessRecent orders by year, month and date descending, then dimensions and id ascending.
func lessRecent(a, b models.SaleRecord, dims []string) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	if a.Month != b.Month {
		return a.Month > b.Month
	}
	switch {
	case a.OrderDate != nil && b.OrderDate != nil && !a.OrderDate.Equal(*b.OrderDate):
		return a.OrderDate.After(*b.OrderDate)
	case a.OrderDate != nil && b.OrderDate == nil:
		return true
	case a.OrderDate == nil && b.OrderDate != nil:
		return false
	}
	for _, d := range dims {
		if av, bv := a.Dimension(d), b.Dimension(d); av != bv {
			return av < bv
		}
	}
	return a.ID < b.ID
}

func zeroSums(measures []string) map[string]float64 {
	sums := make(map[string]float64, len(measures))
	for _, m := range measures {
		sums[m] = 0
	}
	return sums
}

func addSums(sums map[string]float64, rec models.SaleRecord, measures []string) {
	for _, m := range measures {
		sums[m] += rec.Measure(m)
	}
}
