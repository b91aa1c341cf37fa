// Package extract turns a job-posting page into a best-effort JobRecord.
//
// Every site extractor is a fixed, ordered list of CSS selectors per field.
// For each field the first selector whose first match has non-empty trimmed
// text wins; fields are matched independently, so an extractor may fill
// some fields and miss others.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/model"
)

// Extractor reads one parsed page.
type Extractor interface {
	Name() string
	Extract(doc *goquery.Document) model.JobRecord
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc struct {
	name string
	fn   func(doc *goquery.Document) model.JobRecord
}

func (f ExtractorFunc) Name() string { return f.name }

func (f ExtractorFunc) Extract(doc *goquery.Document) model.JobRecord { return f.fn(doc) }

var (
	LinkedIn    Extractor = ExtractorFunc{"linkedin", extractLinkedIn}
	Internshala Extractor = ExtractorFunc{"internshala", extractInternshala}
	Unstop      Extractor = ExtractorFunc{"unstop", extractUnstop}
	Board       Extractor = ExtractorFunc{"board", extractBoard}
	Generic     Extractor = ExtractorFunc{"generic", extractGeneric}
)

// boardHosts are job boards without a dedicated extractor that share the
// board selector set.
var boardHosts = []string{
	"naukri.com",
	"indeed.com",
	"glassdoor.com",
	"monster.com",
	"shine.com",
	"foundit.in",
}

// ForURL picks the extractor for a page by URL substring.
func ForURL(rawURL string) Extractor {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "linkedin.com/jobs"):
		return LinkedIn
	case strings.Contains(u, "internshala.com"):
		return Internshala
	case strings.Contains(u, "unstop.com"):
		return Unstop
	case ContainsAny(u, boardHosts):
		return Board
	default:
		return Generic
	}
}

// IsJobSite reports whether rawURL points at a site with known markup.
func IsJobSite(rawURL string) bool {
	sites := append([]string{
		"linkedin.com/jobs",
		"internshala.com/internship",
		"internshala.com/job",
		"unstop.com",
	}, boardHosts...)
	return ContainsAny(strings.ToLower(rawURL), sites)
}

// Cascade returns the trimmed text of the first selector whose first match
// is non-empty.
func Cascade(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := firstText(doc.Find(sel)); text != "" {
			return text
		}
	}
	return ""
}

// CascadeWhere is Cascade with an additional acceptance test on the text.
// A rejected first match moves on to the next selector.
func CascadeWhere(doc *goquery.Document, accept func(string) bool, selectors ...string) string {
	for _, sel := range selectors {
		if text := firstText(doc.Find(sel)); text != "" && accept(text) {
			return text
		}
	}
	return ""
}

// ScanWhere walks every match of every selector in order and returns the
// first text accepted.
func ScanWhere(doc *goquery.Document, accept func(string) bool, selectors ...string) string {
	var found string
	for _, sel := range selectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" && accept(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// CollectAll returns the trimmed, non-empty, de-duplicated texts of every
// match of every selector that passes accept.
func CollectAll(doc *goquery.Document, accept func(string) bool, selectors ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" || seen[text] || (accept != nil && !accept(text)) {
				return
			}
			seen[text] = true
			out = append(out, text)
		})
	}
	return out
}

func firstText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(s.First().Text())
}

func lengthBetween(min, max int) func(string) bool {
	return func(s string) bool {
		n := len([]rune(s))
		return n > min && n < max
	}
}
