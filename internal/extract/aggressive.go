package extract

import (
	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/model"
)

// descriptionCap bounds the description found by Aggressive, in runes.
const descriptionCap = 1000

// Aggressive is the last-resort extractor used when a site extractor found
// neither a company nor a position. It ignores site markup and looks for
// anything shaped like a title, an employer, a place and a body of text.
func Aggressive(doc *goquery.Document) model.JobRecord {
	rec := model.JobRecord{
		Position: ScanWhere(doc, lengthBetween(5, 100),
			`h1, h2, h3, .title, .job-title, [class*="title"]`),
		Company: ScanWhere(doc, lengthBetween(2, 50),
			`a[href*="company"], .company, [class*="company"], [class*="org"]`),
		Location: ScanWhere(doc, lengthBetween(3, 100),
			`[class*="location"], [class*="address"], [class*="place"]`),
	}

	var longest []rune
	doc.Find("p, div, section").Each(func(_ int, s *goquery.Selection) {
		text := []rune(trimmed(s))
		if len(text) > 100 && len(text) > len(longest) {
			longest = text
		}
	})
	if len(longest) > descriptionCap {
		longest = longest[:descriptionCap]
	}
	rec.Description = string(longest)
	return rec
}
