// Package inmemdb keeps every table in memory. It backs the tests and the "memory" engine.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

type (
	DB struct {
		users      *table[user.User]
		professors *table[user.Professor]
		plans      *table[plan.Plan]
		progress   *table[progress.Progress]
		evidence   *table[evidence.Evidence]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]T
	}

	// comparator returns <0, 0 or >0 like strings.Compare.
	comparator[T any] func(a, b T) int
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func Open() *DB {
	return &DB{
		users:      newTable[user.User](),
		professors: newTable[user.Professor](),
		plans:      newTable[plan.Plan](),
		progress:   newTable[progress.Progress](),
		evidence:   newTable[evidence.Evidence](),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	flush(db.users)
	flush(db.professors)
	flush(db.plans)
	flush(db.progress)
	flush(db.evidence)
}

func flush[T any](t *table[T]) {
	t.Lock()
	defer t.Unlock()
	t.rows = make(map[string]T)
}

// selectRows returns the rows kept by `keep`, sorted by `ordering` (newest first by default).
// Must be called with the table read-locked.
func selectRows[T any](t *table[T], keep func(T) bool, ordering []core.DBOrdering, cmps map[string]comparator[T]) []T {
	rows := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}

	ordering = validOrderings(ordering, cmps)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "createdAt"}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmps[ord.Field](rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return rows
}

func validOrderings[T any](ordering []core.DBOrdering, cmps map[string]comparator[T]) []core.DBOrdering {
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := cmps[ord.Field]; ok {
			valid = append(valid, ord)
		}
	}
	return valid
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	return cmpFloat(float64(a), float64(b))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return append([]string(nil), ss...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
