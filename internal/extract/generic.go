package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/model"
)

func extractGeneric(doc *goquery.Document) model.JobRecord {
	return model.JobRecord{
		Position: Cascade(doc,
			"h1",
			".job-title",
			".position-title",
			`[data-testid="job-title"]`,
			".title",
			"h2",
		),
		Company: Cascade(doc,
			".company-name",
			".employer",
			".company",
			`[data-testid="company-name"]`,
			".organization",
		),
		Location: Cascade(doc,
			".location",
			".job-location",
			".workplace-type",
			`[data-testid="location"]`,
			".address",
		),
		Description: Cascade(doc,
			".job-description",
			".description",
			".job-details",
			`[data-testid="description"]`,
			".content",
		),
	}
}

// extractBoard covers the large boards without a dedicated extractor
// (Indeed, Glassdoor, Naukri and friends).
func extractBoard(doc *goquery.Document) model.JobRecord {
	return model.JobRecord{
		Position: Cascade(doc,
			".job-title-href",
			".job-title",
			`h1[data-testid="job-title"]`,
			".jobs-unified-top-card__job-title",
			".jobsearch-SerpJobCard h2 a",
			".job-title-link",
			`[data-cy="job-title"]`,
		),
		Company: Cascade(doc,
			".jobs-unified-top-card__company-name a",
			".jobs-unified-top-card__company-name",
			".jobsearch-SerpJobCard .company",
			".company-name",
			`[data-cy="company-name"]`,
			".job-company",
		),
		Salary: CascadeWhere(doc, looksLikeBoardPay,
			".stipend",
			".jobs-unified-top-card__job-insight .jobs-unified-top-card__job-insight-text",
			".salary-snippet",
			".salary",
			`[data-cy="salary"]`,
		),
		Location: Cascade(doc,
			".jobs-unified-top-card__bullet",
			".location",
			".job-location",
			`[data-cy="location"]`,
		),
		Description: CascadeWhere(doc, lengthBetween(50, 1<<20),
			".job_summary_container",
			".jobs-description__content",
			".jobsearch-jobDescriptionText",
			".job-description",
			`[data-cy="job-description"]`,
		),
	}
}

func looksLikeBoardPay(s string) bool {
	return strings.ContainsAny(s, "₹$") || ContainsAny(s, []string{"salary", "stipend"}) || moneyPattern.MatchString(s)
}
