// Package compliance evaluates Digital Product Passports against a
// fixed, heuristic rule set. Rules are either blocking (issues) or
// advisory (warnings); the overall status follows from which buckets
// are non-empty.
package compliance

import "github.com/dpp-comply/dpp-engine/internal/passport"

// Report is the outcome of evaluating one passport.
type Report struct {
	ProductID             string   `json:"product_id"`
	Status                string   `json:"status"`
	Issues                []string `json:"issues"`
	Warnings              []string `json:"warnings"`
	ESPRArticleReferences []string `json:"espr_article_references"`
}

// rule is one check; blocking rules produce issues, the rest warnings.
type rule struct {
	message  string
	blocking bool
	applies  func(*passport.DigitalProductPassport) bool
}

var rules = []rule{
	{
		message:  "Missing materials composition.",
		blocking: true,
		applies: func(d *passport.DigitalProductPassport) bool {
			return len(d.MaterialsComposition) == 0
		},
	},
	{
		message:  "Recycling instructions required.",
		blocking: true,
		applies: func(d *passport.DigitalProductPassport) bool {
			return d.RecyclingInstructions == ""
		},
	},
	{
		message: "Recycled content not specified or zero.",
		applies: func(d *passport.DigitalProductPassport) bool {
			return d.RecycledContentPercentage == 0
		},
	},
	{
		message: "CO2 footprint not specified.",
		applies: func(d *passport.DigitalProductPassport) bool {
			return d.CO2FootprintKg == 0
		},
	},
	{
		message: "Repair score not provided.",
		applies: func(d *passport.DigitalProductPassport) bool {
			return d.RepairScore == passport.RepairScoreUnknown || d.RepairScore == ""
		},
	},
}

// Evaluate runs every rule against dpp and derives the status: any issue
// makes the product non_compliant, otherwise any warning makes it
// partially_compliant, otherwise it is compliant. Rule order is fixed so
// reports are deterministic.
func Evaluate(dpp *passport.DigitalProductPassport) Report {
	issues := []string{}
	warnings := []string{}

	for _, r := range rules {
		if !r.applies(dpp) {
			continue
		}
		if r.blocking {
			issues = append(issues, r.message)
		} else {
			warnings = append(warnings, r.message)
		}
	}

	status := passport.StatusCompliant
	if len(issues) > 0 {
		status = passport.StatusNonCompliant
	} else if len(warnings) > 0 {
		status = passport.StatusPartiallyCompliant
	}

	return Report{
		ProductID:             dpp.ProductID,
		Status:                status,
		Issues:                issues,
		Warnings:              warnings,
		ESPRArticleReferences: dpp.ESPRArticleReferences,
	}
}
