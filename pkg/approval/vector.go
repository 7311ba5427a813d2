package approval

import "fmt"

// FeatureSchema is the ordered feature list a classifier or scaler declares.
// A zero FeatureSchema means the consumer does not expose its features.
type FeatureSchema struct {
	Names []string
	// Positional is set when the names were synthesised from a feature count.
	Positional bool
}

// NamedFeatures builds a schema from declared feature names.
func NamedFeatures(names ...string) FeatureSchema {
	return FeatureSchema{Names: append([]string(nil), names...)}
}

// PositionalFeatures synthesises feature_0..feature_{n-1}.
func PositionalFeatures(n int) FeatureSchema {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("feature_%d", i)
	}
	return FeatureSchema{Names: names, Positional: true}
}

// Known reports whether the consumer declared any features.
func (s FeatureSchema) Known() bool {
	return len(s.Names) > 0
}

// Len is the number of declared features.
func (s FeatureSchema) Len() int {
	return len(s.Names)
}

// FeatureVector is an ordered, immutable mapping of feature name to value.
type FeatureVector struct {
	names  []string
	values []float64
}

// NewFeatureVector pairs names with values. Both slices are copied.
func NewFeatureVector(names []string, values []float64) (FeatureVector, error) {
	if len(names) != len(values) {
		return FeatureVector{}, fmt.Errorf("feature vector: %d names for %d values", len(names), len(values))
	}
	return FeatureVector{
		names:  append([]string(nil), names...),
		values: append([]float64(nil), values...),
	}, nil
}

// Names returns the feature names in order.
func (v FeatureVector) Names() []string {
	return append([]string(nil), v.names...)
}

// Values returns the feature values in order.
func (v FeatureVector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Len is the number of features.
func (v FeatureVector) Len() int {
	return len(v.names)
}

// Get returns the value of a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Map returns the vector as an unordered map.
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		out[n] = v.values[i]
	}
	return out
}

// Overlay returns a copy of v where every feature also present in other
// takes other's value. Names and order of v are kept.
func (v FeatureVector) Overlay(other FeatureVector) FeatureVector {
	replacements := other.Map()
	values := v.Values()
	for i, n := range v.names {
		if r, ok := replacements[n]; ok {
			values[i] = r
		}
	}
	return FeatureVector{names: v.Names(), values: values}
}
