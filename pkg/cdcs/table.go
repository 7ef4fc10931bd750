package cdcs

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
)

// Record is one entity as returned by the server.
type Record map[string]any

// ID returns the record's "id" field.
func (r Record) ID() ID {
	id, _ := ParseID(r["id"])
	return id
}

// IDField parses an arbitrary field as an identifier.
func (r Record) IDField(key string) ID {
	id, _ := ParseID(r[key])
	return id
}

// String returns a field rendered as text; missing and null fields are "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Decode maps the record onto a typed snapshot such as *DataRecord.
func (r Record) Decode(out any) error {
	dec, err := newDecoder(out)
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// Table is an ordered collection of records, in server order.
type Table []Record

func tableFromMaps(rows []map[string]any) Table {
	t := make(Table, len(rows))
	for i, row := range rows {
		t[i] = Record(row)
	}
	return t
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t)
}

// Column returns one field from every row, nil where absent.
func (t Table) Column(key string) []any {
	out := make([]any, len(t))
	for i, r := range t {
		out[i] = r[key]
	}
	return out
}

// Columns returns the union of field names, "id" first and the rest sorted.
func (t Table) Columns() []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range t {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i] == "id" || cols[j] == "id" {
			return cols[i] == "id"
		}
		return cols[i] < cols[j]
	})
	return cols
}

// Filter returns the rows for which keep returns true.
func (t Table) Filter(keep func(Record) bool) Table {
	out := Table{}
	for _, r := range t {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Where returns rows whose field renders equal to value.
func (t Table) Where(key string, value any) Table {
	want := fmt.Sprint(value)
	if id, ok := value.(ID); ok {
		want = id.String()
	}
	return t.Filter(func(r Record) bool {
		v, ok := r[key]
		return ok && v != nil && fmt.Sprint(v) == want
	})
}

// IDs returns every row's identifier in order.
func (t Table) IDs() []ID {
	ids := make([]ID, len(t))
	for i, r := range t {
		ids[i] = r.ID()
	}
	return ids
}

// Decode maps every row onto out, which must point to a slice of structs.
func (t Table) Decode(out any) error {
	rows := make([]map[string]any, len(t))
	for i, r := range t {
		rows[i] = r
	}
	dec, err := newDecoder(out)
	if err != nil {
		return err
	}
	if err := dec.Decode(rows); err != nil {
		return fmt.Errorf("failed to decode table: %w", err)
	}
	return nil
}

var (
	idType   = reflect.TypeOf(ID{})
	timeType = reflect.TypeOf(time.Time{})
)

func newDecoder(out any) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(idHook, timeHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
}

func idHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != idType {
		return data, nil
	}
	return ParseID(data)
}

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseAny(s)
}
