package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

func TestQueryArgsWhere(t *testing.T) {
	var a queryArgs
	where := a.where("store-revenue", storage.Filter{Year: 2023, Month: 4})

	assert.Equal(t, "dataset = $1 AND year = $2 AND month = $3", where)
	assert.Equal(t, []any{"store-revenue", 2023, 4}, a.args)
}

func TestQueryArgsSumsBindKeys(t *testing.T) {
	var a queryArgs
	sums := a.sums([]string{"revenue", "checks"})

	assert.Equal(t, ", COALESCE(SUM((measures->>$1::text)::float8), 0), COALESCE(SUM((measures->>$2::text)::float8), 0)", sums)
	assert.Equal(t, []any{"revenue", "checks"}, a.args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_sale\\x`, escapeLike(`50% off_sale\x`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
