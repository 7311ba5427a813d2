package approval

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldKind is the declared type of an input field.
type FieldKind int

const (
	// Number is a floating point field.
	Number FieldKind = iota
	// Integer is a numeric field truncated towards zero.
	Integer
	// Category is a string field matched against fixed enumerations.
	Category
)

// Case controls how category values are normalised before matching.
type Case int

const (
	AsIs Case = iota
	Upper
	Lower
	// Title capitalises the first letter and lowercases the rest ("yes" -> "Yes").
	Title
)

// Field declares one input field of a service.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	// Default is used when the field is absent. Numbers take float64, categories string.
	Default any
	Case    Case
	// Derive computes the value from the other fields when it is absent.
	Derive func(Record) float64
}

// FieldSet is the ordered list of input fields a service accepts.
type FieldSet []Field

// Required returns the names of the required fields in declared order.
func (fs FieldSet) Required() []string {
	var names []string
	for _, f := range fs {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Lookup returns the field with the given name.
func (fs FieldSet) Lookup(name string) (Field, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Parse validates that every required field is present and builds a Record.
// A JSON null counts as absent.
func (fs FieldSet) Parse(raw map[string]any) (Record, error) {
	var missing []string
	for _, f := range fs {
		if !f.Required {
			continue
		}
		if v, ok := raw[f.Name]; !ok || v == nil {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return Record{}, &MissingFieldsError{Fields: missing}
	}
	return fs.Build(raw)
}

// Build coerces raw values into a Record, applying defaults and derivations.
func (fs FieldSet) Build(raw map[string]any) (Record, error) {
	rec := Record{
		numbers:    make(map[string]float64, len(fs)),
		categories: make(map[string]string),
	}

	var derived []Field
	for _, f := range fs {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Derive != nil {
				derived = append(derived, f)
				continue
			}
			v = f.Default
		}

		switch f.Kind {
		case Number, Integer:
			n, err := toFloat(v)
			if err != nil {
				return Record{}, &InvalidFieldError{Field: f.Name, Value: v, Err: err}
			}
			if f.Kind == Integer {
				n = math.Trunc(n)
			}
			rec.numbers[f.Name] = n
		case Category:
			rec.categories[f.Name] = applyCase(toString(v), f.Case)
		}
	}

	for _, f := range derived {
		rec.numbers[f.Name] = f.Derive(rec)
	}
	return rec, nil
}

// Record is an immutable, typed input record.
type Record struct {
	numbers    map[string]float64
	categories map[string]string
}

// Number returns a numeric field, or 0 when the record has no such field.
func (r Record) Number(name string) float64 {
	return r.numbers[name]
}

// Category returns a categorical field, or "" when absent.
func (r Record) Category(name string) string {
	return r.categories[name]
}

// Values returns a copy of every field keyed by name.
func (r Record) Values() map[string]any {
	out := make(map[string]any, len(r.numbers)+len(r.categories))
	for k, v := range r.numbers {
		out[k] = v
	}
	for k, v := range r.categories {
		out[k] = v
	}
	return out
}

// Names returns the record's field names sorted alphabetically.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.numbers)+len(r.categories))
	for k := range r.numbers {
		names = append(names, k)
	}
	for k := range r.categories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var errNotNumeric = errors.New("not a number")

func toFloat(v any) (float64, error) {
	var n float64
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case int32:
		n = float64(t)
	case bool:
		if t {
			n = 1
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotNumeric, t.String())
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotNumeric, t)
		}
		n = f
	default:
		return 0, fmt.Errorf("%w: %T", errNotNumeric, v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: non-finite value", errNotNumeric)
	}
	return n, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(t)
	}
}

func applyCase(s string, c Case) string {
	switch c {
	case Upper:
		return strings.ToUpper(s)
	case Lower:
		return strings.ToLower(s)
	case Title:
		if s == "" {
			return s
		}
		lower := strings.ToLower(s)
		return strings.ToUpper(lower[:1]) + lower[1:]
	default:
		return s
	}
}
