// Package card declares the credit card approval service: its request
// fields, feature table, rule signals, insights and credit limit estimate.
package card

import (
	_ "embed"
	"math"
	"path/filepath"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/model"
)

const (
	// Service is the service name used in logs, metrics and events.
	Service = "card-service"
	// PageFile is the static test page served at "/".
	PageFile = "credit_card_prediction.html"

	// ModelAccuracy is the reported accuracy of the trained model.
	ModelAccuracy = 0.80
	// RulesAccuracy is the estimated accuracy of the rule engine.
	RulesAccuracy = 0.65
)

//go:embed rules.yaml
var defaultRules []byte

// Strategies tags the pipeline stages.
var Strategies = approval.Strategies{
	Scaled:   "ml_model_with_scaler",
	Unscaled: "ml_model_unscaled",
	Rules:    "rule_based_fallback",
}

var incomeTypes = []string{"Working", "Commercial associate", "Pensioner", "State servant", "Student"}

var educationTypes = []string{
	"Higher education",
	"Secondary / secondary special",
	"Incomplete higher",
	"Lower secondary",
	"Academic degree",
}

var familyStatuses = []string{"Married", "Single / not married", "Civil marriage", "Separated", "Widow"}

var housingTypes = []string{
	"House / apartment",
	"With parents",
	"Municipal apartment",
	"Rented apartment",
	"Office apartment",
	"Co-op apartment",
}

var jobCategories = []approval.Group{
	{Name: "Managers", Members: []string{"Managers"}},
	{Name: "Professional", Members: []string{
		"Core staff", "IT staff", "Accountants", "Medicine staff",
		"High skill tech staff", "HR staff", "Realty agents",
	}},
	{Name: "Service", Members: []string{
		"Sales staff", "Drivers", "Cooking staff", "Security staff",
		"Cleaning staff", "Private service staff", "Waiters/barmen staff",
	}},
	{Name: "Labor", Members: []string{"Laborers", "Low-skill Laborers"}},
	{Name: "Support", Members: []string{"Secretaries"}},
}

var jobTitleCodes = map[string]float64{
	"Laborers":              0,
	"Core staff":            1,
	"Sales staff":           2,
	"Managers":              3,
	"Drivers":               4,
	"High skill tech staff": 5,
	"Accountants":           6,
	"Medicine staff":        7,
	"Cooking staff":         8,
	"Security staff":        9,
	"Cleaning staff":        10,
	"Private service staff": 11,
	"Low-skill Laborers":    12,
	"Waiters/barmen staff":  13,
	"Secretaries":           14,
	"HR staff":              15,
	"Realty agents":         16,
	"IT staff":              17,
}

// Fields lists the accepted request fields. All 19 are required.
func Fields() approval.FieldSet {
	return approval.FieldSet{
		{Name: "Applicant_Gender", Kind: approval.Category, Required: true, Default: "M", Case: approval.Upper},
		{Name: "Owned_Car", Kind: approval.Category, Required: true, Default: "N", Case: approval.Upper},
		{Name: "Owned_Realty", Kind: approval.Category, Required: true, Default: "N", Case: approval.Upper},
		{Name: "Total_Children", Kind: approval.Integer, Required: true, Default: 0.0},
		{Name: "Total_Income", Kind: approval.Number, Required: true, Default: 0.0},
		{Name: "Income_Type", Kind: approval.Category, Required: true, Default: "Working"},
		{Name: "Education_Type", Kind: approval.Category, Required: true, Default: "Higher education"},
		{Name: "Family_Status", Kind: approval.Category, Required: true, Default: "Married"},
		{Name: "Housing_Type", Kind: approval.Category, Required: true, Default: "House / apartment"},
		{Name: "Owned_Mobile_Phone", Kind: approval.Integer, Required: true, Default: 1.0},
		{Name: "Owned_Work_Phone", Kind: approval.Integer, Required: true, Default: 0.0},
		{Name: "Owned_Phone", Kind: approval.Integer, Required: true, Default: 1.0},
		{Name: "Owned_Email", Kind: approval.Integer, Required: true, Default: 1.0},
		{Name: "Job_Title", Kind: approval.Category, Required: true, Default: "Laborers"},
		{Name: "Total_Family_Members", Kind: approval.Integer, Required: true, Default: 1.0},
		{Name: "Applicant_Age", Kind: approval.Integer, Required: true, Default: 30.0},
		{Name: "Years_of_Working", Kind: approval.Integer, Required: true, Default: 5.0},
		{Name: "Total_Bad_Debt", Kind: approval.Number, Required: true, Default: 0.0},
		{Name: "Total_Good_Debt", Kind: approval.Number, Required: true, Default: 0.0},
	}
}

// Schema is the encoded feature table the card models are trained on.
func Schema() *approval.Schema {
	return approval.NewSchema(
		approval.Flag("Applicant_Gender", "Applicant_Gender", "M"),
		approval.Flag("Owned_Car", "Owned_Car", "Y"),
		approval.Flag("Owned_Realty", "Owned_Realty", "Y"),
		approval.Numeric(
			"Owned_Mobile_Phone",
			"Owned_Work_Phone",
			"Owned_Phone",
			"Owned_Email",
			"Total_Children",
			"Total_Income",
			"Total_Family_Members",
			"Applicant_Age",
			"Years_of_Working",
			"Total_Bad_Debt",
			"Total_Good_Debt",
		),
		approval.OneHot("Income_Type", incomeTypes...),
		approval.OneHot("Education_Type", educationTypes...),
		approval.OneHot("Family_Status", familyStatuses...),
		approval.OneHot("Housing_Type", housingTypes...),
		approval.Grouped("Job_Category", "Job_Title", jobCategories...),
		approval.Ordinal("Job_Title_Encoded", "Job_Title", jobTitleCodes, 0),
	)
}

// Signals are the derived values rule conditions can use.
func Signals() []approval.Signal {
	return []approval.Signal{
		{Name: "total_debt", Compute: totalDebt},
		{Name: "debt_to_income", Compute: debtToIncome},
	}
}

// Profile assembles the card service profile.
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

// Summarize adds the credit limit estimate, the expected credit score
// impact and the accuracy of the answering strategy.
func Summarize(r approval.Record, o approval.Outcome) approval.Summary {
	p := o.Probability()

	accuracy := ModelAccuracy
	if o.Strategy == Strategies.Rules {
		accuracy = RulesAccuracy
	}
	limit := CreditLimit(r, p)

	return approval.Summary{
		Input: map[string]any{
			"income":               r.Number("Total_Income"),
			"total_debt":           totalDebt(r),
			"debt_to_income_ratio": approval.Round(debtToIncome(r), 3),
			"years_working":        int(r.Number("Years_of_Working")),
			"age":                  int(r.Number("Applicant_Age")),
			"family_size":          int(r.Number("Total_Family_Members")),
		},
		EstimatedLimit:    &limit,
		CreditScoreImpact: CreditScoreImpact(p),
		ModelAccuracy:     &accuracy,
	}
}

// CreditScoreImpact grades how much a new card would weigh on the score.
func CreditScoreImpact(p float64) string {
	switch {
	case p > 0.7:
		return "Low"
	case p > 0.5:
		return "Medium"
	default:
		return "High"
	}
}

// Candidates lists model and scaler files in search order: the service's
// models directory, the service directory, then the working directory.
func Candidates(serviceDir, workDir string) model.Candidates {
	modelsDir := filepath.Join(serviceDir, "models")

	var c model.Candidates
	c.Models = append(c.Models, model.Under(modelsDir, "credit_card_model.json", "credit_card_approval.json", "model.json")...)
	c.Models = append(c.Models, model.Under(serviceDir, "credit_card_model.json", "credit_card_approval.json")...)
	c.Models = append(c.Models, model.Under(workDir, "credit_card_model.json")...)

	c.Scalers = append(c.Scalers, model.Under(modelsDir, "credit_card_scaler.json", "scaler.json")...)
	c.Scalers = append(c.Scalers, model.Under(serviceDir, "credit_card_scaler.json", "scaler.json")...)
	c.Scalers = append(c.Scalers, model.Under(workDir, "credit_card_scaler.json")...)
	return c
}

// Sample is an example request body.
func Sample() map[string]any {
	return map[string]any{
		"Applicant_Gender":     "F",
		"Owned_Car":            "Y",
		"Owned_Realty":         "Y",
		"Total_Children":       1,
		"Total_Income":         65000,
		"Income_Type":          "Working",
		"Education_Type":       "Higher education",
		"Family_Status":        "Married",
		"Housing_Type":         "House / apartment",
		"Owned_Mobile_Phone":   1,
		"Owned_Work_Phone":     0,
		"Owned_Phone":          1,
		"Owned_Email":          1,
		"Job_Title":            "IT staff",
		"Total_Family_Members": 3,
		"Applicant_Age":        38,
		"Years_of_Working":     9,
		"Total_Bad_Debt":       0,
		"Total_Good_Debt":      12000,
	}
}

func totalDebt(r approval.Record) float64 {
	return r.Number("Total_Bad_Debt") + r.Number("Total_Good_Debt")
}

func debtToIncome(r approval.Record) float64 {
	return totalDebt(r) / math.Max(1, r.Number("Total_Income"))
}
