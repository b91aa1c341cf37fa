package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/model"
)

// moneyPattern accepts text that reads like pay: a currency symbol next to a
// number, or a number with a magnitude word.
var moneyPattern = regexp.MustCompile(`(?i)[₹$€£¥]\s*\d+|\d+\s*[₹$€£¥]|\d+\s*(lakh|crore|k|thousand|million)\b`)

// Selector lists are ordered: current public job-view markup first, signed-in
// unified top card next, generic class names last.
var (
	linkedInCompany = []string{
		".topcard__org-name-link",
		".sub-nav-cta__optional-url",
		".top-card-layout__second-subline .topcard__org-name-link",
		".job-details-jobs-unified-top-card__primary-description-container .app-aware-link",
		".jobs-unified-top-card__company-name a",
		".job-details-jobs-unified-top-card__company-name a",
		`[data-test-id="job-details-company-name"]`,
		".jobs-company-name",
		".company-name",
	}
	linkedInTitle = []string{
		".top-card-layout__title",
		".sub-nav-cta__header",
		".topcard__title",
		".jobs-unified-top-card__job-title h1",
		".job-details-jobs-unified-top-card__job-title h1",
		`[data-test-id="job-title"]`,
		".jobs-job-title",
		"h1",
	}
	linkedInLocation = []string{
		".sub-nav-cta__meta-text",
		".topcard__flavor--bullet",
		".main-job-card__location",
		".jobs-unified-top-card__primary-description-container .jobs-unified-top-card__bullet",
		".job-details-jobs-unified-top-card__primary-description-container .jobs-unified-top-card__bullet",
		`[data-test-id="job-location"]`,
		".location",
	}
	linkedInDescription = []string{
		".description__text--rich",
		".show-more-less-html__markup",
		".jobs-description-content__text",
		".job-details-jobs-unified-top-card__job-description .jobs-description-content__text",
		`[data-test-id="job-description"]`,
		".job-description",
		".description",
	}
	linkedInSalary = []string{
		".main-job-card__salary-info",
		".jobs-unified-top-card__job-insight",
		".job-details-jobs-unified-top-card__job-insight",
		".salary",
		".compensation",
	}
)

func extractLinkedIn(doc *goquery.Document) model.JobRecord {
	rec := model.JobRecord{
		Company:     Cascade(doc, linkedInCompany...),
		Position:    Cascade(doc, linkedInTitle...),
		Location:    Cascade(doc, linkedInLocation...),
		Description: Cascade(doc, linkedInDescription...),
		Salary:      CascadeWhere(doc, moneyPattern.MatchString, linkedInSalary...),
	}
	if criteria := CollectAll(doc, nil, ".description__job-criteria-text--criteria"); len(criteria) > 0 {
		rec.Criteria = strings.Join(criteria, ", ")
	}
	return rec
}
