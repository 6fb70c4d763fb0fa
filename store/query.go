package store

import (
	"errors"
	"fmt"
	"strings"

	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/lib/pq"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// where accumulates AND-ed conditions with numbered placeholders. Each
// condition carries a single "?" replaced by the next $n.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

// addRaw appends a condition that takes no argument.
func (w *where) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// next returns the placeholder for an argument appended after the conditions.
func (w *where) next(arg interface{}) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

// filterWhere applies the dashboard filter to a table. An empty column name
// means the table cannot be filtered on that dimension.
func filterWhere(f models.Filter, timeCol, productCol, sourceCol string) *where {
	w := &where{}
	if !f.From.IsZero() {
		w.add(timeCol+" >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add(timeCol+" <= ?", f.To)
	}
	if f.Product != "" && productCol != "" {
		w.add(productCol+" = ?", f.Product)
	}
	if f.Source != "" && sourceCol != "" {
		w.add("lower("+sourceCol+") = lower(?)", f.Source)
	}
	return w
}

// page appends LIMIT and OFFSET for listings.
func page(w *where, f models.Filter, def int) string {
	limit := utils.ClampLimit(f.Limit, def, maxListLimit)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %s OFFSET %s", w.next(limit), w.next(offset))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
