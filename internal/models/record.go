package models

// Field is one column of a dataset row.
type Field struct {
	Name  string
	Value any
}

// Record is a dataset row with its columns in select order.
type Record []Field

// Get returns the value of the named column.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// NewRecord pairs column names with scanned values. Byte slices are
// converted to strings.
func NewRecord(columns []string, values []any) Record {
	r := make(Record, len(columns))
	for i, c := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		r[i] = Field{Name: c, Value: v}
	}
	return r
}
