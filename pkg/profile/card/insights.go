package card

import (
	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/profile"
)

// Risks lists the risk factors of an application.
func Risks(r approval.Record, p float64) []string {
	var risks []string

	switch dti := debtToIncome(r); {
	case dti > 0.5:
		risks = append(risks, "Very high debt-to-income ratio ("+profile.Percent(dti, 1)+")")
	case dti > 0.3:
		risks = append(risks, "High debt-to-income ratio ("+profile.Percent(dti, 1)+")")
	}

	if r.Number("Total_Bad_Debt") > 0 {
		risks = append(risks, "Existing bad debt on record")
	}
	if income := r.Number("Total_Income"); income < 20000 {
		risks = append(risks, "Low income ("+profile.Currency(income)+")")
	}
	if r.Number("Years_of_Working") < 1 {
		risks = append(risks, "Limited work experience")
	}
	if age := r.Number("Applicant_Age"); age < 21 {
		risks = append(risks, "Young age ("+profile.Number(age)+" years)")
	}
	if p < 0.3 {
		risks = append(risks, "Low approval probability")
	}
	return risks
}

// Recommendations lists what the applicant could do next. The two credit
// hygiene tips are always included.
func Recommendations(r approval.Record, p float64) []string {
	var recs []string

	if debtToIncome(r) > 0.3 {
		recs = append(recs, "Reduce existing debt before applying for new credit")
	}
	if r.Number("Total_Income") < 30000 {
		recs = append(recs, "Consider increasing income or applying for secured credit card")
	}
	if r.Number("Years_of_Working") < 2 {
		recs = append(recs, "Build longer work history before applying")
	}

	switch {
	case p < 0.5:
		recs = append(recs, "Improve financial profile before applying")
	case p > 0.8:
		recs = append(recs, "Strong application - good chances of approval with competitive terms")
	}

	return append(recs,
		"Maintain low credit utilization (<30%) for better scores",
		"Make timely payments to build positive credit history",
	)
}
