package approval

// Registry holds the classifier and scaler loaded at startup. It is built
// once and only read afterwards, so it is safe to share between requests.
type Registry struct {
	model      Classifier
	scaler     Scaler
	modelPath  string
	scalerPath string
}

// NewRegistry builds a registry. Either handle may be nil.
func NewRegistry(model Classifier, modelPath string, scaler Scaler, scalerPath string) *Registry {
	return &Registry{
		model:      model,
		scaler:     scaler,
		modelPath:  modelPath,
		scalerPath: scalerPath,
	}
}

// Model returns the loaded classifier, or nil.
func (r *Registry) Model() Classifier {
	if r == nil {
		return nil
	}
	return r.model
}

// Scaler returns the loaded scaler, or nil.
func (r *Registry) Scaler() Scaler {
	if r == nil {
		return nil
	}
	return r.scaler
}

func (r *Registry) ModelLoaded() bool  { return r.Model() != nil }
func (r *Registry) ScalerLoaded() bool { return r.Scaler() != nil }

// ModelPath is the file the classifier was loaded from.
func (r *Registry) ModelPath() string {
	if r == nil {
		return ""
	}
	return r.modelPath
}

// ScalerPath is the file the scaler was loaded from.
func (r *Registry) ScalerPath() string {
	if r == nil {
		return ""
	}
	return r.scalerPath
}

// ModelFeatures is the classifier's declared schema, zero when absent.
func (r *Registry) ModelFeatures() FeatureSchema {
	if m := r.Model(); m != nil {
		return m.Features()
	}
	return FeatureSchema{}
}

// ScalerFeatures is the scaler's declared schema, zero when absent.
func (r *Registry) ScalerFeatures() FeatureSchema {
	if s := r.Scaler(); s != nil {
		return s.Features()
	}
	return FeatureSchema{}
}
