package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// applySelectors are known apply controls on supported sites.
var applySelectors = []string{
	".top_apply_now_cta",
	".btn.btn-primary.top_apply_now_cta.apply",
	"button.btn.btn-primary.top_apply_now_cta.apply",
	".apply-btn",
	`[data-apply="true"]`,
	".sign-up-modal__outlet",
	".top-card-layout__cta--primary",
	`button[data-modal="apply-sign-up-modal"]`,
	`button[data-tracking-control-name*="apply"]`,
}

var applyWords = []string{"apply", "submit application"}

// ApplyTarget is an apply control found on a page.
type ApplyTarget struct {
	// Key identifies the control across rescans of the same page.
	Key      string
	Label    string
	Selector string
}

// DetectApplyTargets returns the apply controls in doc that are not in seen,
// and records them in seen so each control is instrumented once. Known
// selectors are scanned first, then any button or link whose text, aria
// label or title mentions applying.
func DetectApplyTargets(doc *goquery.Document, seen map[string]bool) []ApplyTarget {
	var out []ApplyTarget
	add := func(sel string, s *goquery.Selection) {
		key := elementKey(s)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ApplyTarget{Key: key, Label: label(s), Selector: sel})
	}

	for _, sel := range applySelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) { add(sel, s) })
	}

	const generic = `button, a, [role="button"]`
	doc.Find(generic).Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("top_apply_now_cta") {
			return
		}
		text := strings.ToLower(s.Text())
		aria := strings.ToLower(s.AttrOr("aria-label", ""))
		title := strings.ToLower(s.AttrOr("title", ""))
		if ContainsAny(text, applyWords) || strings.Contains(aria, "apply") || strings.Contains(title, "apply") {
			add(generic, s)
		}
	})
	return out
}

// elementKey is the element's position in the tree plus its identifying
// attributes; the same control yields the same key on every fetch.
func elementKey(s *goquery.Selection) string {
	var path []string
	for n := s; n.Length() > 0; n = n.Parent() {
		node := n.Get(0)
		if node.Type != html.ElementNode {
			break
		}
		path = append(path, node.Data+":"+strconv.Itoa(n.Index()))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, "/") + "#" + s.AttrOr("id", "") + "." + s.AttrOr("class", "")
}

func label(s *goquery.Selection) string {
	if t := trimmed(s); t != "" {
		return t
	}
	if a := s.AttrOr("aria-label", ""); a != "" {
		return a
	}
	return s.AttrOr("title", "")
}

func trimmed(s *goquery.Selection) string { return strings.TrimSpace(s.Text()) }
