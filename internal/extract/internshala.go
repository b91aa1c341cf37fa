package extract

import (
	"github.com/PuerkitoBio/goquery"

	"jobtracker/internal/model"
)

func extractInternshala(doc *goquery.Document) model.JobRecord {
	return model.JobRecord{
		Company: Cascade(doc,
			".heading_4_5 a",
			".company-name",
			".company_name",
			".company",
			"h4.heading_4_5 a",
		),
		Position: Cascade(doc,
			".heading_4_5.profile",
			"div.heading_4_5.profile",
			".profile",
			"h1.heading_4_5",
		),
		Location: Cascade(doc,
			"#location_names a",
			".location_names span a",
			".location_names > span > a",
			".location_names a",
			".location a",
		),
		Salary: Cascade(doc,
			"span.stipend",
			".stipend",
			".salary",
			".compensation",
		),
		Description: Cascade(doc,
			".text-container",
			".description",
			".job-description",
			".detail_text",
		),
	}
}
