package ingest

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"ragcore/internal/model"
)

// IngestWithCrawl runs Ingest for d and, when d.Kind is web_url and
// d.Options.CrawlDepth > 0, breadth-first enumerates same-origin links up to
// MaxDepth, ingesting each as an independent source inheriting the parent's
// tenant/source_group. Reports are summed across the whole crawl.
func (p *Pipeline) IngestWithCrawl(ctx context.Context, d model.SourceDescriptor) (model.IngestReport, error) {
	total := model.IngestReport{}

	r, err := p.Ingest(ctx, d)
	if err != nil {
		return total, err
	}
	mergeReport(&total, r)

	if d.Kind != model.SourceWebURL || d.Options.CrawlDepth <= 0 {
		return total, nil
	}

	origin, err := sameOriginRoot(d.Locator)
	if err != nil {
		return total, nil
	}

	visited := map[string]bool{d.Locator: true}
	frontier := []string{d.Locator}
	maxDepth := d.Options.MaxDepth
	if maxDepth <= 0 {
		maxDepth = d.Options.CrawlDepth
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, u := range frontier {
			fetched, err := p.Fetchers.Fetch(ctx, model.SourceDescriptor{Kind: model.SourceWebURL, Locator: u})
			if err != nil {
				continue
			}
			for _, link := range extractLinks(string(fetched.Data), origin) {
				if visited[link] {
					continue
				}
				visited[link] = true
				next = append(next, link)

				sub := model.SourceDescriptor{
					Kind:        model.SourceWebURL,
					Locator:     link,
					Tenant:      d.Tenant,
					SourceGroup: d.SourceGroup,
				}
				r, err := p.Ingest(ctx, sub)
				if err != nil {
					total.Warnings = append(total.Warnings, "crawl sub-source failed: "+link+": "+err.Error())
					continue
				}
				mergeReport(&total, r)
			}
		}
		frontier = next
	}

	return total, nil
}

func mergeReport(total *model.IngestReport, r model.IngestReport) {
	total.DocumentsIngested += r.DocumentsIngested
	total.ChunksIngested += r.ChunksIngested
	total.Warnings = append(total.Warnings, r.Warnings...)
}

func sameOriginRoot(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// extractLinks tokenises a fetched page and returns every same-origin anchor
// href, absolutised against origin.
func extractLinks(page, origin string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.SplitN(attr.Val, "#", 2)[0]
				var abs string
				switch {
				case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
					abs = href
				case strings.HasPrefix(href, "/"):
					abs = origin + href
				default:
					continue
				}
				if strings.HasPrefix(abs, origin) {
					out = append(out, abs)
				}
			}
		}
	}
}
