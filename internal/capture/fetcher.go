package capture

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// Page is a fetched and parsed document.
type Page struct {
	URL  string
	Body []byte
	Doc  *goquery.Document
}

// PageFetcher loads a page for extraction.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// CollyFetcher fetches pages with a colly collector behind a token-bucket
// limiter, so the watcher's polling never hammers a job site.
type CollyFetcher struct {
	base    *colly.Collector
	limiter *rate.Limiter
}

// NewCollyFetcher builds a fetcher allowing perSecond requests with the
// given burst.
func NewCollyFetcher(userAgent string, timeout time.Duration, perSecond float64, burst int) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)

	return &CollyFetcher{
		base:    c,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Fetch waits for the limiter, then GETs url and parses the body.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	// Clone drops callbacks, so each fetch registers its own.
	c := f.base.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	var (
		body     []byte
		final    string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		final = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("GET %s: status %d: %w", url, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("GET %s: %w", url, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return &Page{URL: final, Body: body, Doc: doc}, nil
}
