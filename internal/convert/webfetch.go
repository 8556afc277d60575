package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"ragcore/internal/errs"
)

// FetchWebPage renders a URL with a headless browser and returns the
// resulting HTML, for web_url sources where the content is generated by
// client-side JavaScript and a plain HTTP GET would miss it. The rendered
// HTML is handed to MarkdownHandler (format "web") to produce the
// CanonicalDocument.
func FetchWebPage(ctx context.Context, url string) (string, error) {
	if err := checkRobotsTxt(ctx, url); err != nil {
		return "", err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", errs.Wrap(errs.SourceUnreadable, "render web page: "+url, err)
	}
	return html, nil
}

// checkRobotsTxt performs a best-effort robots.txt check, disallowing
// fetches that the target site has explicitly blocked for all user agents.
// An unreachable or missing robots.txt never blocks the fetch.
func checkRobotsTxt(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errs.New(errs.ConfigInvalid, "invalid url: "+rawURL)
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, parsed.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil // unreachable robots.txt does not block the fetch
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	if disallowed(resp.Body, parsed.Path) {
		return errs.New(errs.SourceUnreadable, "robots.txt disallows fetch: "+rawURL)
	}
	return nil
}

// disallowed scans a robots.txt body for a "User-agent: *" group and reports
// whether path matches one of its Disallow prefixes.
func disallowed(body io.Reader, path string) bool {
	scanner := bufio.NewScanner(body)
	inWildcardGroup := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent":
			inWildcardGroup = val == "*"
		case "disallow":
			if inWildcardGroup && val != "" && strings.HasPrefix(path, val) {
				return true
			}
		}
	}
	return false
}
