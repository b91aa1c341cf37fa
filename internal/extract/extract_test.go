package extract_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/extract"
)

func parse(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

const linkedInPage = `<html><body>
<section class="top-card-layout">
  <h1 class="top-card-layout__title"> Software Engineer </h1>
  <div class="top-card-layout__second-subline">
    <a class="topcard__org-name-link">Acme Corp</a>
    <span class="topcard__flavor--bullet">Remote</span>
  </div>
  <div class="main-job-card__salary-info">Competitive</div>
  <div class="salary">$120,000 - $150,000</div>
</section>
<div class="description__text--rich">Build things.</div>
<ul>
  <li><span class="description__job-criteria-text--criteria">Mid-Senior level</span></li>
  <li><span class="description__job-criteria-text--criteria">Full-time</span></li>
</ul>
</body></html>`

func TestLinkedIn(t *testing.T) {
	ex := extract.ForURL("https://www.linkedin.com/jobs/view/123")
	require.Equal(t, "linkedin", ex.Name())

	rec := ex.Extract(parse(t, linkedInPage))
	assert.Equal(t, "Acme Corp", rec.Company)
	assert.Equal(t, "Software Engineer", rec.Position)
	assert.Equal(t, "Remote", rec.Location)
	assert.Equal(t, "Build things.", rec.Description)
	assert.Equal(t, "$120,000 - $150,000", rec.Salary, "non-money salary text is skipped")
	assert.Equal(t, "Mid-Senior level, Full-time", rec.Criteria)
	assert.True(t, rec.Usable())
}

func TestForURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.linkedin.com/jobs/view/1", "linkedin"},
		{"https://LINKEDIN.com/jobs/search", "linkedin"},
		{"https://www.linkedin.com/feed/", "generic"},
		{"https://internshala.com/internship/detail/x", "internshala"},
		{"https://unstop.com/jobs/analyst-tata", "unstop"},
		{"https://in.indeed.com/viewjob?jk=1", "board"},
		{"https://www.naukri.com/job-listings-x", "board"},
		{"https://example.com/careers/42", "generic"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, extract.ForURL(c.url).Name(), c.url)
	}
}

func TestIsJobSite(t *testing.T) {
	assert.True(t, extract.IsJobSite("https://www.linkedin.com/jobs/view/1"))
	assert.True(t, extract.IsJobSite("https://internshala.com/job/detail/1"))
	assert.True(t, extract.IsJobSite("https://www.glassdoor.com/job-listing/x"))
	assert.False(t, extract.IsJobSite("https://internshala.com/"))
	assert.False(t, extract.IsJobSite("https://example.com"))
}

func TestCascadeOrderAndEmptyMatches(t *testing.T) {
	doc := parse(t, `<div class="a">   </div><div class="b">second</div><div class="c">third</div>`)
	assert.Equal(t, "second", extract.Cascade(doc, ".missing", ".a", ".b", ".c"))
	assert.Equal(t, "", extract.Cascade(doc, ".missing"))

	long := func(s string) bool { return len(s) > 6 }
	assert.Equal(t, "", extract.CascadeWhere(doc, long, ".b", ".c"))
}

func TestInternshala(t *testing.T) {
	doc := parse(t, `<div class="internship_meta">
  <div class="heading_4_5 profile">Marketing Intern</div>
  <div class="heading_4_5 company"><a>Globex</a></div>
  <div id="location_names"><span><a>Work From Home</a></span></div>
  <span class="stipend">₹ 10,000 /month</span>
  <div class="text-container">Help the team.</div>
</div>`)
	rec := extract.Internshala.Extract(doc)
	assert.Equal(t, "Globex", rec.Company)
	assert.Equal(t, "Marketing Intern", rec.Position)
	assert.Equal(t, "Work From Home", rec.Location)
	assert.Equal(t, "₹ 10,000 /month", rec.Salary)
	assert.Equal(t, "Help the team.", rec.Description)
}

func TestUnstop(t *testing.T) {
	doc := parse(t, `<body>
  <h1>Welcome</h1>
  <h2>Tata Crucible Business Analyst Hiring</h2>
  <div class="org_name">Some Org</div>
  <div class="un_editor_text_live">About the role.</div>
  <div class="items"><div class="cptn"><p>Stipend: INR 25,000</p><p>6 Months</p></div></div>
  <div class="eligibility_sect"><div class="items"><div class="eligi">Engineering Students</div><div class="eligi">MBA</div></div></div>
</body>`)
	rec := extract.Unstop.Extract(doc)
	assert.Equal(t, "Tata Crucible Business Analyst Hiring", rec.Position)
	assert.Equal(t, "Tata", rec.Company, "known employer in the title wins over selectors")
	assert.Equal(t, "About the role.", rec.Description)
	assert.Equal(t, "Stipend: INR 25,000", rec.Salary)
	assert.Equal(t, "6 Months", rec.Duration)
	assert.Equal(t, "Engineering Students, MBA", rec.Eligibility)
}

func TestUnstopLocalFallback(t *testing.T) {
	doc := parse(t, `<body>
  <h3>Product Design Challenge 2025</h3>
  <span>x</span><span>Zeta</span>
</body>`)
	rec := extract.Unstop.Extract(doc)
	assert.Equal(t, "Product Design Challenge 2025", rec.Position)
	assert.Equal(t, "Zeta", rec.Company)
}

func TestBoard(t *testing.T) {
	doc := parse(t, `<body>
  <h1 data-testid="job-title">Data Engineer</h1>
  <div class="company-name">Initech</div>
  <div class="salary-snippet">Up to ₹ 12 lakh a year</div>
  <div class="location">Pune</div>
  <div class="jobsearch-jobDescriptionText">short</div>
  <div class="job-description">` + strings.Repeat("Pipelines and warehouses. ", 4) + `</div>
</body>`)
	rec := extract.Board.Extract(doc)
	assert.Equal(t, "Data Engineer", rec.Position)
	assert.Equal(t, "Initech", rec.Company)
	assert.Equal(t, "Up to ₹ 12 lakh a year", rec.Salary)
	assert.Equal(t, "Pune", rec.Location)
	assert.True(t, strings.HasPrefix(rec.Description, "Pipelines"))
}

func TestGeneric(t *testing.T) {
	doc := parse(t, `<body><h1>Backend Developer</h1><p class="employer">Umbrella</p><span class="job-location">Berlin</span></body>`)
	rec := extract.Generic.Extract(doc)
	assert.Equal(t, "Backend Developer", rec.Position)
	assert.Equal(t, "Umbrella", rec.Company)
	assert.Equal(t, "Berlin", rec.Location)
}

func TestGenericUnusableOnBarePage(t *testing.T) {
	rec := extract.Generic.Extract(parse(t, `<body><p>nothing here</p></body>`))
	assert.False(t, rec.Usable())
}

func TestAggressive(t *testing.T) {
	body := strings.Repeat("word ", 300)
	doc := parse(t, `<body>
  <h2>Hi</h2>
  <h2>Platform Engineer II</h2>
  <span class="orgLabel">Hooli</span>
  <span class="job-place">Lisbon, PT</span>
  <section><p>`+body+`</p></section>
</body>`)
	rec := extract.Aggressive(doc)
	assert.Equal(t, "Platform Engineer II", rec.Position, "titles of five runes or fewer are skipped")
	assert.Equal(t, "Hooli", rec.Company)
	assert.Equal(t, "Lisbon, PT", rec.Location)
	assert.Len(t, []rune(rec.Description), 1000)
}

func TestAggressiveShortTextIsNoDescription(t *testing.T) {
	rec := extract.Aggressive(parse(t, `<body><p>too short</p></body>`))
	assert.Empty(t, rec.Description)
}

func TestDetectApplyTargets(t *testing.T) {
	doc := parse(t, `<body>
  <button class="btn btn-primary top_apply_now_cta apply">Apply now</button>
  <a href="/x" aria-label="Apply on company site">Go</a>
  <div role="button" title="Save">Save</div>
  <button>Submit Application</button>
  <button>Share</button>
</body>`)
	seen := map[string]bool{}

	got := extract.DetectApplyTargets(doc, seen)
	require.Len(t, got, 3)
	assert.Equal(t, "Apply now", got[0].Label)
	assert.Equal(t, ".top_apply_now_cta", got[0].Selector)
	assert.Equal(t, "Go", got[1].Label)
	assert.Equal(t, "Submit Application", got[2].Label)

	assert.Empty(t, extract.DetectApplyTargets(doc, seen), "already instrumented targets are skipped")
}
