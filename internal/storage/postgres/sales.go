package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hongminglow/sales-dashboard-be/internal/models"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

var saleColumns = []string{"dataset", "year", "month", "order_date", "dimensions", "measures"}

// ReplaceAll deletes the dataset's rows and copies records in within one transaction,
// so readers never observe an empty table mid-sync.
func (s *Store) ReplaceAll(ctx context.Context, dataset string, records []models.SaleRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sale_records WHERE dataset = $1`, dataset); err != nil {
		return 0, fmt.Errorf("delete sale records: %w", err)
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		dims := rec.Dimensions
		if dims == nil {
			dims = map[string]string{}
		}
		measures := rec.Measures
		if measures == nil {
			measures = map[string]float64{}
		}
		var orderDate pgtype.Date
		if rec.OrderDate != nil {
			orderDate = pgtype.Date{Time: *rec.OrderDate, Valid: true}
		}
		rows = append(rows, []any{dataset, rec.Year, rec.Month, orderDate, dims, measures})
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"sale_records"}, saleColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy sale records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return int(n), nil
}

// Totals sums measures over the filtered rows.
func (s *Store) Totals(ctx context.Context, dataset string, measures []string, f storage.Filter) (storage.Totals, error) {
	var a queryArgs
	sums := a.sums(measures)
	where := a.where(dataset, f)
	query := fmt.Sprintf(`SELECT COUNT(*)%s FROM sale_records WHERE %s`, sums, where)

	out := storage.Totals{Sums: make(map[string]float64, len(measures))}
	values := make([]float64, len(measures))
	dest := []any{&out.Count}
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := s.pool.QueryRow(ctx, query, a.args...).Scan(dest...); err != nil {
		return storage.Totals{}, fmt.Errorf("query totals: %w", err)
	}
	for i, m := range measures {
		out.Sums[m] = values[i]
	}
	return out, nil
}

// GroupByDimension sums measures per distinct dimension value.
func (s *Store) GroupByDimension(ctx context.Context, dataset, dimension string, measures []string, f storage.Filter) ([]storage.Group, error) {
	var a queryArgs
	sums := a.sums(measures)
	key := a.add(dimension)
	where := a.where(dataset, f)
	query := fmt.Sprintf(`
		SELECT key%s
		FROM (
			SELECT COALESCE(dimensions->>%s::text, '') AS key, measures
			FROM sale_records
			WHERE %s
		) grouped
		GROUP BY key
		ORDER BY key`, sums, key, where)

	rows, err := s.pool.Query(ctx, query, a.args...)
	if err != nil {
		return nil, fmt.Errorf("query group by %s: %w", dimension, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.Group, error) {
		g := storage.Group{}
		sumsOut, err := scanWithSums(row, measures, &g.Key)
		g.Sums = sumsOut
		return g, err
	})
}

// GroupByPeriod sums measures per year, or per year and month.
func (s *Store) GroupByPeriod(ctx context.Context, dataset string, measures []string, byMonth bool, f storage.Filter) ([]storage.PeriodGroup, error) {
	var a queryArgs
	sums := a.sums(measures)
	where := a.where(dataset, f)
	monthCol, groupBy := "0", "year"
	if byMonth {
		monthCol, groupBy = "month", "year, month"
	}
	query := fmt.Sprintf(`
		SELECT year, %s%s
		FROM sale_records
		WHERE %s
		GROUP BY %s
		ORDER BY %s`, monthCol, sums, where, groupBy, groupBy)

	rows, err := s.pool.Query(ctx, query, a.args...)
	if err != nil {
		return nil, fmt.Errorf("query period groups: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.PeriodGroup, error) {
		g := storage.PeriodGroup{}
		sumsOut, err := scanWithSums(row, measures, &g.Year, &g.Month)
		g.Sums = sumsOut
		return g, err
	})
}

// Page returns one page of rows, most recent period first, plus the filtered total.
func (s *Store) Page(ctx context.Context, dataset string, q storage.PageQuery) ([]models.SaleRecord, int64, error) {
	var a queryArgs
	where := a.where(dataset, q.Filter)
	if q.Search != "" && len(q.SearchFields) > 0 {
		pattern := a.add("%" + escapeLike(q.Search) + "%")
		ors := make([]string, 0, len(q.SearchFields))
		for _, field := range q.SearchFields {
			ors = append(ors, fmt.Sprintf("dimensions->>%s::text ILIKE %s", a.add(field), pattern))
		}
		where += " AND (" + strings.Join(ors, " OR ") + ")"
	}

	var total int64
	countArgs := append([]any(nil), a.args...)
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sale_records WHERE `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sale records: %w", err)
	}

	order := []string{"year DESC", "month DESC", "order_date DESC NULLS LAST"}
	for _, dim := range q.OrderDimensions {
		order = append(order, fmt.Sprintf("dimensions->>%s::text ASC", a.add(dim)))
	}
	order = append(order, "id ASC")

	query := fmt.Sprintf(`
		SELECT id, dataset, year, month, order_date, dimensions, measures
		FROM sale_records
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s`, where, strings.Join(order, ", "), a.add(q.Limit), a.add(q.Offset))

	rows, err := s.pool.Query(ctx, query, a.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query sale records: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanSaleRecord)
	if err != nil {
		return nil, 0, fmt.Errorf("scan sale records: %w", err)
	}
	return records, total, nil
}

// DistinctYears lists the years present, ascending.
func (s *Store) DistinctYears(ctx context.Context, dataset string) ([]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT year FROM sale_records WHERE dataset = $1 ORDER BY year`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query years: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func scanSaleRecord(row pgx.CollectableRow) (models.SaleRecord, error) {
	var rec models.SaleRecord
	var orderDate pgtype.Date
	if err := row.Scan(&rec.ID, &rec.Dataset, &rec.Year, &rec.Month, &orderDate, &rec.Dimensions, &rec.Measures); err != nil {
		return models.SaleRecord{}, err
	}
	if orderDate.Valid {
		d := time.Date(orderDate.Time.Year(), orderDate.Time.Month(), orderDate.Time.Day(), 0, 0, 0, 0, time.UTC)
		rec.OrderDate = &d
	}
	return rec, nil
}

// scanWithSums scans the leading columns into lead and the remaining ones as measure sums.
func scanWithSums(row pgx.CollectableRow, measures []string, lead ...any) (map[string]float64, error) {
	values := make([]float64, len(measures))
	dest := append([]any{}, lead...)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	sums := make(map[string]float64, len(measures))
	for i, m := range measures {
		sums[m] = values[i]
	}
	return sums, nil
}

// queryArgs accumulates positional parameters while a statement is assembled.
// JSON keys are always bound as parameters, never interpolated.
type queryArgs struct {
	args []any
}

func (a *queryArgs) add(v any) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

func (a *queryArgs) where(dataset string, f storage.Filter) string {
	conds := []string{"dataset = " + a.add(dataset)}
	if f.Year != 0 {
		conds = append(conds, "year = "+a.add(f.Year))
	}
	if f.Month != 0 {
		conds = append(conds, "month = "+a.add(f.Month))
	}
	return strings.Join(conds, " AND ")
}

// sums renders ", SUM(...)" for each measure, in order.
func (a *queryArgs) sums(measures []string) string {
	var b strings.Builder
	for _, m := range measures {
		fmt.Fprintf(&b, ", COALESCE(SUM((measures->>%s::text)::float8), 0)", a.add(m))
	}
	return b.String()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
