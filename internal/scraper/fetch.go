package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardscout/cardworker/helpers"
	"cardscout/cardworker/logger"
	errs "cardscout/cardworker/pkg/errors"
	"cardscout/cardworker/services/cache"

	"github.com/PuerkitoBio/goquery"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// auto-scroll guard against infinite lazy-load pages
	maxScrolls      = 30
	scrollIncrement = 1200

	// throttle window applied to a source host after a failed fetch
	blockWindow = 60 * time.Second
)

// browserStrategy is one way of asking the headless browser for a page
type browserStrategy struct {
	name     string
	endpoint string
	payload  map[string]interface{}
}

// Fetcher loads source pages through a browserless-compatible headless
// browser endpoint, falling back to plain HTTP for pages that render
// statically. The browser page is owned by the single request that asked for
// it; browserless tears the page down when the call returns, on every exit
// path.
type Fetcher struct {
	browserAddr string
	navTimeout  time.Duration
	client      *http.Client
	cacheSvc    cache.CacheService
	log         *logger.Logger
}

// NewFetcher creates a page fetcher. browserAddr may be empty, in which case
// every fetch uses plain HTTP.
func NewFetcher(browserAddr string, navTimeout time.Duration, cacheSvc cache.CacheService) *Fetcher {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Fetcher{
		browserAddr: strings.TrimRight(browserAddr, "/"),
		navTimeout:  navTimeout,
		// outer budget: navigation timeout plus browser startup slack
		client:   &http.Client{Timeout: navTimeout + 30*time.Second},
		cacheSvc: cacheSvc,
		log:      logger.ForSource("fetcher"),
	}
}

// ValidateSourceURL checks that rawURL is a valid absolute URL whose host
// belongs to one of the known sources, and returns the matching source.
func ValidateSourceURL(rawURL string, sources []Source) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, errs.NewValidation("", fmt.Sprintf("invalid URL: %q", rawURL))
	}
	host := strings.ToLower(u.Hostname())
	for _, src := range sources {
		if src.Matches(host) {
			return src, nil
		}
	}
	return nil, errs.NewValidation("", fmt.Sprintf("unsupported source domain: %s", host))
}

// FetchPage loads a detail or search-results page and returns the parsed DOM
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return f.fetch(ctx, pageURL, false)
}

// FetchListing loads a category/listing page, auto-scrolling through
// lazy-loaded widgets before returning the DOM
func (f *Fetcher) FetchListing(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return f.fetch(ctx, pageURL, true)
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string, scroll bool) (*goquery.Document, error) {
	host, err := hostOf(pageURL)
	if err != nil {
		return nil, errs.NewValidation("", fmt.Sprintf("invalid URL: %q", pageURL))
	}

	blockKey := "fetch_block:" + host
	if cache.IsBlocked(f.cacheSvc, blockKey) {
		return nil, errs.New(errs.KindInternal, host, "source temporarily blocked after repeated failures", nil)
	}

	if f.browserAddr != "" {
		doc, err := f.fetchWithBrowser(ctx, pageURL, scroll)
		if err == nil {
			return doc, nil
		}
		if errs.KindOf(err) == errs.KindTimeout {
			return nil, err
		}
		f.log.Warn().Err(err).Str("url", pageURL).Msg("browser fetch failed, falling back to plain HTTP")
	}

	body, err := helpers.FetchWithRandomHeaders(pageURL)
	if err != nil {
		if strings.HasPrefix(err.Error(), "rate limited") {
			if blockErr := cache.Block(f.cacheSvc, blockKey, blockWindow); blockErr != nil {
				f.log.Debug().Err(blockErr).Msg("failed to set fetch block")
			}
		}
		return nil, errs.NewInternal(host, "failed to fetch page", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errs.NewInternal(host, "failed to parse HTML", err)
	}
	return doc, nil
}

// fetchWithBrowser drives the headless browser over HTTP. Detail pages go
// through /content with navigation options; listing pages go through
// /function with a page script that sets the viewport and user agent, blocks
// font/media requests, and scrolls until the page stops growing.
func (f *Fetcher) fetchWithBrowser(ctx context.Context, pageURL string, scroll bool) (*goquery.Document, error) {
	host, _ := hostOf(pageURL)
	timeoutMs := int(f.navTimeout / time.Millisecond)

	var strategies []browserStrategy
	if scroll {
		strategies = []browserStrategy{
			{
				name:     "function-autoscroll",
				endpoint: "/function",
				payload: map[string]interface{}{
					"code": autoScrollScript,
					"context": map[string]interface{}{
						"url":             pageURL,
						"timeout":         timeoutMs,
						"userAgent":       desktopUserAgent,
						"width":           viewportWidth,
						"height":          viewportHeight,
						"maxScrolls":      maxScrolls,
						"scrollIncrement": scrollIncrement,
					},
				},
			},
		}
	} else {
		strategies = []browserStrategy{
			{
				name:     "content-networkidle",
				endpoint: "/content",
				payload: map[string]interface{}{
					"url":                 pageURL,
					"userAgent":           desktopUserAgent,
					"rejectResourceTypes": []string{"font", "media"},
					"gotoOptions": map[string]interface{}{
						"waitUntil": "networkidle2",
						"timeout":   timeoutMs,
					},
				},
			},
			{
				name:     "content-load",
				endpoint: "/content",
				payload: map[string]interface{}{
					"url":                 pageURL,
					"userAgent":           desktopUserAgent,
					"rejectResourceTypes": []string{"font", "media"},
					"gotoOptions": map[string]interface{}{
						"waitUntil": "load",
						"timeout":   timeoutMs,
					},
				},
			},
		}
	}

	var lastErr error
	for i, strategy := range strategies {
		f.log.Debug().Str("strategy", strategy.name).Str("url", pageURL).Msg("browser fetch")

		html, err := f.executeStrategy(ctx, strategy)
		if err == nil {
			doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(html))
			if parseErr != nil {
				return nil, errs.NewInternal(host, "failed to parse HTML", parseErr)
			}
			return doc, nil
		}

		lastErr = err
		if errs.KindOf(err) == errs.KindTimeout {
			return nil, err
		}
		if i < len(strategies)-1 {
			time.Sleep(1 * time.Second)
		}
	}

	return nil, lastErr
}

func (f *Fetcher) executeStrategy(ctx context.Context, strategy browserStrategy) ([]byte, error) {
	host := "browser"
	data, err := json.Marshal(strategy.payload)
	if err != nil {
		return nil, errs.NewInternal(host, "failed to marshal browser payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.browserAddr+strategy.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, errs.NewInternal(host, "failed to create browser request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeoutError(err) {
			return nil, errs.NewTimeout(host, strategy.name, err)
		}
		return nil, errs.NewInternal(host, "browser request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewInternal(host, "failed to read browser response", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		if isTimeoutBody(snippet) {
			return nil, errs.NewTimeout(host, strategy.name, fmt.Errorf("browser returned %d: %s", resp.StatusCode, snippet))
		}
		return nil, errs.NewInternal(host, fmt.Sprintf("browser returned status %d", resp.StatusCode), fmt.Errorf("%s", snippet))
	}

	html := extractHTML(body)
	if html == nil {
		return nil, errs.NewInternal(host, "browser response is not HTML", nil)
	}
	return html, nil
}

// extractHTML handles both raw-HTML and JSON-wrapped browser responses
func extractHTML(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '{' {
		var wrapped map[string]interface{}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil {
			for _, field := range []string{"data", "content", "result", "html"} {
				if s, ok := wrapped[field].(string); ok && looksLikeHTML(s) {
					return []byte(s)
				}
			}
		}
		return nil
	}

	if looksLikeHTML(string(trimmed)) {
		return trimmed
	}
	return nil
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<!doctype") ||
		strings.Contains(lower, "<body")
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

func isTimeoutBody(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out")
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

// autoScrollScript runs inside the browser for category pages: fixed-size
// scroll increments until the scrollable height stops growing or the scroll
// ceiling is hit.
const autoScrollScript = `module.exports = async ({ page, context }) => {
	await page.setViewport({ width: context.width, height: context.height });
	await page.setUserAgent(context.userAgent);
	await page.setRequestInterception(true);
	page.on('request', (req) => {
		const type = req.resourceType();
		if (type === 'font' || type === 'media') {
			req.abort();
		} else {
			req.continue();
		}
	});

	await page.goto(context.url, { waitUntil: 'domcontentloaded', timeout: context.timeout });

	let lastHeight = await page.evaluate('document.body.scrollHeight');
	let scrolled = 0;
	for (let i = 0; i < context.maxScrolls; i++) {
		await page.evaluate('window.scrollBy(0, ' + context.scrollIncrement + ')');
		await new Promise((resolve) => setTimeout(resolve, 400));
		scrolled += context.scrollIncrement;
		const height = await page.evaluate('document.body.scrollHeight');
		if (height === lastHeight && scrolled >= height) {
			break;
		}
		lastHeight = height;
	}

	return await page.content();
};`
