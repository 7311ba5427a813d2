package loan

import (
	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/profile"
)

// Risks lists the risk factors of an application, most severe first.
func Risks(r approval.Record, p float64) []string {
	var risks []string

	credit := r.Number("credit_score")
	switch {
	case credit < 580:
		risks = append(risks, "Very low credit score ("+profile.Number(credit)+") - high risk")
	case credit < 650:
		risks = append(risks, "Low credit score ("+profile.Number(credit)+") - moderate risk")
	}

	lti := loanToIncome(r)
	switch {
	case lti > 0.5:
		risks = append(risks, "Very high loan-to-income ratio ("+profile.Percent(lti, 2)+")")
	case lti > 0.4:
		risks = append(risks, "High loan-to-income ratio ("+profile.Percent(lti, 2)+")")
	}

	if hasDefaults(r) {
		risks = append(risks, "Previous loan defaults on record")
	}

	rate := r.Number("loan_int_rate")
	switch {
	case rate > 20:
		risks = append(risks, "Very high interest rate ("+profile.Number(rate)+"%)")
	case rate > 15:
		risks = append(risks, "High interest rate ("+profile.Number(rate)+"%)")
	}

	if dti := r.Number("debt_to_income_ratio"); dti > 0.5 {
		risks = append(risks, "High debt-to-income ratio ("+profile.Percent(dti, 2)+")")
	}

	if p < 0.3 {
		risks = append(risks, "Low approval probability")
	}
	return risks
}

// Recommendations lists what the applicant could do to improve the outcome.
func Recommendations(r approval.Record, p float64) []string {
	var recs []string

	if credit := r.Number("credit_score"); credit < 650 {
		recs = append(recs, "Improve credit score from "+profile.Number(credit)+" to at least 650")
	}

	if loanToIncome(r) > 0.4 {
		suggested := 0.4 * r.Number("person_income")
		recs = append(recs, "Consider reducing loan amount to "+profile.Currency(suggested)+" or less")
	}

	if hasDefaults(r) {
		recs = append(recs, "Avoid new loan applications until improving payment history")
	}

	switch {
	case p < 0.5:
		recs = append(recs, "Consider improving financial profile before applying")
	case p > 0.8:
		recs = append(recs, "Strong application - good chances of approval")
	}

	switch r.Category("loan_grade") {
	case "D", "E", "F", "G":
		recs = append(recs, "Work on improving loan grade by reducing existing debt")
	}
	return recs
}

func hasDefaults(r approval.Record) bool {
	return r.Category("previous_loan_defaults_on_file") == "Yes"
}
