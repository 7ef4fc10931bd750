package cdcs

import (
	"sort"
	"strings"
)

type refKind int

const (
	refUnset refKind = iota
	refID
	refName
	refEntity
)

// EntityRef names an entity by exactly one of: its server id, its
// discriminating name (title, filename, ...) or an already fetched Record.
// The zero EntityRef is unset.
type EntityRef struct {
	kind   refKind
	id     ID
	name   string
	entity Record
}

// ByID references an entity by server-assigned id. Resolving it costs no
// request.
func ByID(id ID) EntityRef {
	return EntityRef{kind: refID, id: id}
}

// ByName references an entity by its discriminating field.
func ByName(name string) EntityRef {
	return EntityRef{kind: refName, name: name}
}

// ByEntity references an entity already in hand.
func ByEntity(r Record) EntityRef {
	return EntityRef{kind: refEntity, entity: r}
}

// IsZero reports an unset reference.
func (r EntityRef) IsZero() bool {
	return r.kind == refUnset
}

func (r EntityRef) String() string {
	switch r.kind {
	case refID:
		return "id " + r.id.String()
	case refName:
		return "name " + r.name
	case refEntity:
		return "id " + r.entity.ID().String()
	default:
		return "unset"
	}
}

// resolveRef turns a reference into a record, using lookup for names. IDs
// resolve to a record carrying only "id".
func resolveRef(op, entity string, ref EntityRef, lookup func(name string) (Record, error)) (Record, error) {
	switch ref.kind {
	case refEntity:
		if ref.entity.ID().IsZero() {
			return nil, newError(op, ErrFormat, "%s entity has no id", entity)
		}
		return ref.entity, nil
	case refID:
		if ref.id.IsZero() {
			return nil, newError(op, ErrFormat, "%s id is empty", entity)
		}
		return Record{"id": ref.id}, nil
	case refName:
		return lookup(ref.name)
	default:
		return nil, newError(op, ErrFormat, "%s reference is required", entity)
	}
}

// resolveOne enforces the exactly-one invariant on a filtered table.
func resolveOne(op, entity string, t Table, criteria string) (Record, error) {
	switch len(t) {
	case 1:
		return t[0], nil
	case 0:
		return nil, newError(op, ErrNotFound, "no %s matching %s", entity, criteria)
	default:
		return nil, newError(op, ErrAmbiguousMatch, "%d %ss matching %s", len(t), entity, criteria)
	}
}

// exclusive fails with ErrConflict when more than one named parameter is set.
func exclusive(op string, params map[string]bool) error {
	var set []string
	for name, ok := range params {
		if ok {
			set = append(set, name)
		}
	}
	if len(set) > 1 {
		sort.Strings(set)
		return newError(op, ErrConflict, "only one of %s may be given", strings.Join(set, ", "))
	}
	return nil
}

// criteria renders key=value pairs for error messages, skipping empties.
func criteria(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			parts = append(parts, pairs[i]+"="+pairs[i+1])
		}
	}
	if len(parts) == 0 {
		return "no criteria"
	}
	return strings.Join(parts, ", ")
}
