// Package loan declares the loan approval service: its request fields,
// feature table, rule signals and insights.
package loan

import (
	_ "embed"
	"math"
	"path/filepath"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/model"
)

const (
	// Service is the service name used in logs, metrics and events.
	Service = "loan-service"
	// PageFile is the static test page served at "/".
	PageFile = "loan_prediction.html"

	// RulesNote is attached to predictions answered by the rule engine.
	RulesNote = "Using fallback rule-based prediction due to model/scaler mismatch"
)

//go:embed rules.yaml
var defaultRules []byte

// Strategies tags the pipeline stages.
var Strategies = approval.Strategies{
	Scaled:   "trained_scaled",
	Unscaled: "trained_unscaled",
	Rules:    "fallback_rules",
}

// Fields lists the accepted request fields. Absent optional fields default.
func Fields() approval.FieldSet {
	return approval.FieldSet{
		{Name: "person_age", Kind: approval.Number, Required: true},
		{Name: "person_income", Kind: approval.Number, Required: true},
		{Name: "person_emp_exp", Kind: approval.Number, Default: 0.0},
		{Name: "loan_amnt", Kind: approval.Number, Required: true},
		{Name: "loan_int_rate", Kind: approval.Number, Required: true},
		{Name: "loan_percent_income", Kind: approval.Number, Derive: loanToIncome},
		{Name: "cb_person_cred_hist_length", Kind: approval.Number, Default: 0.0},
		{Name: "credit_score", Kind: approval.Number, Required: true},
		{Name: "debt_to_income_ratio", Kind: approval.Number, Default: 0.3},
		{Name: "person_gender", Kind: approval.Category, Default: "male", Case: approval.Lower},
		{Name: "person_home_ownership", Kind: approval.Category, Default: "RENT", Case: approval.Upper},
		{Name: "loan_intent", Kind: approval.Category, Default: "PERSONAL", Case: approval.Upper},
		{Name: "previous_loan_defaults_on_file", Kind: approval.Category, Default: "No", Case: approval.Title},
		{Name: "loan_grade", Kind: approval.Category, Required: true, Default: "B", Case: approval.Upper},
	}
}

// Schema is the full encoded feature table the loan models are trained on.
func Schema() *approval.Schema {
	return approval.NewSchema(
		approval.Numeric(
			"person_age",
			"person_income",
			"person_emp_exp",
			"loan_amnt",
			"loan_int_rate",
			"loan_percent_income",
			"cb_person_cred_hist_length",
			"credit_score",
			"debt_to_income_ratio",
		),
		approval.OneHot("person_gender", "female", "male"),
		approval.OneHot("person_home_ownership", "MORTGAGE", "OWN", "RENT", "OTHER"),
		approval.OneHot("loan_intent", "DEBTCONSOLIDATION", "EDUCATION", "HOMEIMPROVEMENT", "MEDICAL", "PERSONAL", "VENTURE"),
		approval.OneHot("previous_loan_defaults_on_file", "No", "Yes"),
		approval.OneHot("loan_grade", "A", "B", "C", "D", "E", "F", "G"),
	)
}

// Signals are the derived values rule conditions can use.
func Signals() []approval.Signal {
	return []approval.Signal{
		{Name: "loan_to_income", Compute: loanToIncome},
	}
}

// Profile assembles the loan service profile.
func Profile() approval.Profile {
	return approval.Profile{
		Service:    Service,
		Fields:     Fields(),
		Schema:     Schema(),
		Signals:    Signals(),
		Strategies: Strategies,
		Insights: approval.Insights{
			RiskFunc:           Risks,
			RecommendationFunc: Recommendations,
			NoRisks:            "No significant risk factors identified",
			NoRecommendations:  "Good financial profile - continue maintaining good financial habits",
		},
		Summarize: Summarize,
		Rules:     defaultRules,
	}
}

// Summarize reports the inputs the decision mostly rests on.
func Summarize(r approval.Record, o approval.Outcome) approval.Summary {
	s := approval.Summary{
		Input: map[string]any{
			"credit_score":         r.Number("credit_score"),
			"income":               r.Number("person_income"),
			"loan_amount":          r.Number("loan_amnt"),
			"loan_to_income_ratio": approval.Round(loanToIncome(r), 3),
		},
	}
	if o.Strategy == Strategies.Rules {
		s.Note = RulesNote
	}
	return s
}

// Candidates lists model and scaler files in search order: the service's
// models directory, the service directory, then the working directory.
func Candidates(serviceDir, workDir string) model.Candidates {
	modelsDir := filepath.Join(serviceDir, "models")

	var c model.Candidates
	c.Models = append(c.Models, model.Under(modelsDir, "loan_approval.json", "loan_model.json", "model.json")...)
	c.Models = append(c.Models, model.Under(serviceDir, "loan_approval.json", "loan_model.json")...)
	c.Models = append(c.Models, model.Under(workDir, "loan_approval.json", "loan_model.json")...)

	c.Scalers = append(c.Scalers, model.Under(modelsDir, "loan_scaler.json", "scaler.json")...)
	c.Scalers = append(c.Scalers, model.Under(serviceDir, "loan_scaler.json", "scaler.json")...)
	c.Scalers = append(c.Scalers, model.Under(workDir, "loan_scaler.json", "scaler.json")...)
	return c
}

// Sample is an example request body.
func Sample() map[string]any {
	return map[string]any{
		"person_age":                     35,
		"person_income":                  85000,
		"person_emp_exp":                 8,
		"loan_amnt":                      20000,
		"loan_int_rate":                  9.5,
		"credit_score":                   720,
		"loan_grade":                     "B",
		"person_gender":                  "female",
		"person_home_ownership":          "MORTGAGE",
		"loan_intent":                    "HOMEIMPROVEMENT",
		"previous_loan_defaults_on_file": "No",
		"debt_to_income_ratio":           0.25,
		"cb_person_cred_hist_length":     10,
	}
}

func loanToIncome(r approval.Record) float64 {
	return r.Number("loan_amnt") / math.Max(1, r.Number("person_income"))
}
