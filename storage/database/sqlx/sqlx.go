// Package sqlxrepos implements the repositories on PostgreSQL through sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

const uniqueViolation = "23505"

// where accumulates AND-ed conditions written with `?` bindvars.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// orderBy maps API field names to columns; unknown fields are dropped.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	valid := core.FilterOrderings(ordering, columns)
	if len(valid) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(valid))
	for _, ord := range valid {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// trapNoRowsErr maps "no rows" to the domain not-found error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func toStrings(ss pq.StringArray) []string {
	if ss == nil {
		return []string{}
	}
	return []string(ss)
}
