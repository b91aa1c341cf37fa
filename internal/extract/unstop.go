package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/model"
)

// knownEmployers are matched against an Unstop title before any company
// selector is tried; Unstop often renders the employer only inside the title.
var knownEmployers = []string{"Myntra", "Tata"}

var (
	unstopTitleKeywords = []string{"Internship", "Hiring", "Analyst", "Business"}

	unstopPayPattern      = regexp.MustCompile(`(?i)INR\s*[\d,]+|[\d,]+\s*INR|₹\s*[\d,]+|[\d,]+\s*₹|\d+\s*(lakh|crore|k|thousand|million)\b|stipend|per month`)
	unstopDurationPattern = regexp.MustCompile(`(?i)\d+\s*months?\b`)
	capitalisedWord       = regexp.MustCompile(`^[A-Z][a-z]+$`)
)

var unstopParagraphs = []string{".items .cptn p", ".ng-star-inserted p", "p"}

func extractUnstop(doc *goquery.Document) model.JobRecord {
	var rec model.JobRecord

	rec.Position = CascadeWhere(doc, func(s string) bool {
		return FirstContained(s, unstopTitleKeywords) != ""
	},
		`span[apptranslate="tataCrucible.title"]`,
		`span[skiptranslate="true"]`,
		"h1",
		"h2",
	)

	rec.Company = FirstContained(rec.Position, knownEmployers)
	if rec.Company == "" {
		rec.Company = Cascade(doc,
			".org_name",
			".company-name",
			".blue_un-hover",
			`a[href*="company"]`,
		)
	}

	rec.Description = Cascade(doc,
		`.un_editor_text_live[skiptranslate="true"]`,
		".blue_un-border-before.un_editor_text_live",
		".tab-detail .un_editor_text_live",
		".about_game .un_editor_text_live",
		".un_editor_text_live",
		`div[apptranslate="tataCrucible.competitionDetails"]`,
	)

	rec.Salary = ScanWhere(doc, unstopPayPattern.MatchString, unstopParagraphs...)
	rec.Duration = ScanWhere(doc, unstopDurationPattern.MatchString, unstopParagraphs...)

	eligibility := CollectAll(doc, lengthBetween(2, 100),
		".eligibility_sect .items .eligi",
		".eligibility_sect .items div",
		".eligi",
	)
	if len(eligibility) > 0 {
		rec.Eligibility = strings.Join(eligibility, ", ")
	}

	if !rec.Usable() {
		rec.Position = ScanWhere(doc, lengthBetween(10, 200), "h1, h2, h3, h4, h5, h6")
		rec.Company = ScanWhere(doc, func(s string) bool {
			return lengthBetween(2, 50)(s) &&
				(capitalisedWord.MatchString(s) || FirstContained(s, knownEmployers) != "")
		}, "a, span")
	}

	return rec
}
