package approval

// Feature is one entry of a schema table. It names the features it produces
// and writes their values for a record.
type Feature interface {
	Names() []string
	Emit(r Record, out map[string]float64)
}

// Schema is the declared, ordered table of features a service can build from
// a Record.
type Schema struct {
	features []Feature
	names    []string
}

// NewSchema builds a schema from feature declarations, in order.
func NewSchema(features ...Feature) *Schema {
	s := &Schema{features: features}
	for _, f := range features {
		s.names = append(s.names, f.Names()...)
	}
	return s
}

// Names returns every feature the schema produces, in declared order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Raw builds the generic feature mapping for a record.
func (s *Schema) Raw(r Record) map[string]float64 {
	out := make(map[string]float64, len(s.names))
	for _, f := range s.features {
		f.Emit(r, out)
	}
	return out
}

// Assemble reshapes the record's features to exactly the target schema:
// extra features are dropped, missing ones are zero and the order follows
// the target. An unknown target yields every schema feature in declared order.
func (s *Schema) Assemble(r Record, target FeatureSchema) FeatureVector {
	names := target.Names
	if !target.Known() {
		names = s.names
	}
	raw := s.Raw(r)
	values := make([]float64, len(names))
	for i, n := range names {
		values[i] = raw[n]
	}
	return FeatureVector{
		names:  append([]string(nil), names...),
		values: values,
	}
}

type numeric struct {
	fields []string
}

// Numeric passes numeric fields through unchanged.
func Numeric(fields ...string) Feature {
	return numeric{fields: fields}
}

func (n numeric) Names() []string {
	return append([]string(nil), n.fields...)
}

func (n numeric) Emit(r Record, out map[string]float64) {
	for _, f := range n.fields {
		out[f] = r.Number(f)
	}
}

type oneHot struct {
	field      string
	categories []string
}

// OneHot expands a categorical field into <field>_<category> indicators.
// Unknown values leave every indicator at zero.
func OneHot(field string, categories ...string) Feature {
	return oneHot{field: field, categories: categories}
}

func (o oneHot) Names() []string {
	names := make([]string, len(o.categories))
	for i, c := range o.categories {
		names[i] = o.field + "_" + c
	}
	return names
}

func (o oneHot) Emit(r Record, out map[string]float64) {
	v := r.Category(o.field)
	for _, c := range o.categories {
		out[o.field+"_"+c] = indicator(v == c)
	}
}

type flag struct {
	name  string
	field string
	match string
}

// Flag emits a single 0/1 feature that is set when field equals match.
func Flag(name, field, match string) Feature {
	return flag{name: name, field: field, match: match}
}

func (f flag) Names() []string {
	return []string{f.name}
}

func (f flag) Emit(r Record, out map[string]float64) {
	out[f.name] = indicator(r.Category(f.field) == f.match)
}

// Group maps several category values onto one indicator.
type Group struct {
	Name    string
	Members []string
}

type grouped struct {
	prefix string
	field  string
	groups []Group
}

// Grouped emits <prefix>_<group> indicators, set when the field's value is a
// member of the group.
func Grouped(prefix, field string, groups ...Group) Feature {
	return grouped{prefix: prefix, field: field, groups: groups}
}

func (g grouped) Names() []string {
	names := make([]string, len(g.groups))
	for i, grp := range g.groups {
		names[i] = g.prefix + "_" + grp.Name
	}
	return names
}

func (g grouped) Emit(r Record, out map[string]float64) {
	v := r.Category(g.field)
	for _, grp := range g.groups {
		hit := false
		for _, m := range grp.Members {
			if m == v {
				hit = true
				break
			}
		}
		out[g.prefix+"_"+grp.Name] = indicator(hit)
	}
}

type ordinal struct {
	name     string
	field    string
	codes    map[string]float64
	fallback float64
}

// Ordinal encodes a categorical field as a numeric code, using fallback for
// unknown values.
func Ordinal(name, field string, codes map[string]float64, fallback float64) Feature {
	return ordinal{name: name, field: field, codes: codes, fallback: fallback}
}

func (o ordinal) Names() []string {
	return []string{o.name}
}

func (o ordinal) Emit(r Record, out map[string]float64) {
	code, ok := o.codes[r.Category(o.field)]
	if !ok {
		code = o.fallback
	}
	out[o.name] = code
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
