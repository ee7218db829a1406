package store

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/AndyKimLi/cottage-booking/domain"
)

var dialect = goqu.Dialect("postgres")

// BuildSearchQuery composes the dashboard listing query from whichever
// filters the operator set. Prepared form, so values travel as bind args.
func BuildSearchQuery(filter domain.SearchFilter) (string, []interface{}, error) {
	ds := dialect.
		From("reservations").
		Select(
			"id", "cottage_id", "user_id", "guest_name", "guest_email",
			"check_in", "check_out", "guests", "total_price", "status",
			"special_requests", "created_at", "updated_at",
		).
		Order(goqu.C("created_at").Desc()).
		Prepared(true)

	if filter.CottageID != nil {
		ds = ds.Where(goqu.C("cottage_id").Eq(*filter.CottageID))
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if !filter.From.IsZero() {
		ds = ds.Where(goqu.C("check_out").Gt(filter.From))
	}
	if !filter.Until.IsZero() {
		ds = ds.Where(goqu.C("check_in").Lt(filter.Until))
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	return ds.ToSQL()
}
