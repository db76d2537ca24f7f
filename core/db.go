package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses "-createdAt,materia" into orderings.
func ParseOrdering(s string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

// FilterOrderings keeps the orderings whose field is allowed, mapping it to its storage name.
func FilterOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	valid := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			valid = append(valid, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return valid
}
