// Package scraper turns a product page URL into a ProductContext: the
// raw markup plus best-effort extracted title, description, images,
// specs, and review text. Retail pages share no schema, so extraction is
// heuristic. Repeat requests for the same URL are served from a TTL
// cache.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html"

	"github.com/sage-engine/sage/internal/schema"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const maxPageBytes = 8 << 20

// maxImages bounds how many product images one context carries.
const maxImages = 10

type Scraper struct {
	httpClient *http.Client
	cache      *gocache.Cache
}

func New(timeout, cacheTTL time.Duration) *Scraper {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Scrape fetches and parses a product page, serving repeat requests for
// the same URL from cache until the TTL lapses.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (schema.ProductContext, error) {
	if cached, ok := s.cache.Get(rawURL); ok {
		return cached.(schema.ProductContext), nil
	}

	pageHTML, err := s.fetch(ctx, rawURL)
	if err != nil {
		return schema.ProductContext{}, err
	}

	page := parsePage(pageHTML)

	pc := schema.ProductContext{
		// Stable id: the same URL always maps to the same product.
		ProductID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL)).String(),
		URL:       rawURL,
		PDPHTML:   pageHTML,
		Images:    page.images,
		Source:    "web_app",
		Timestamp: time.Now().Format(time.RFC3339),
		Metadata: map[string]any{
			"title":                    page.title,
			"description":              page.description,
			"extracted_reviews_length": len(page.reviewsText),
			"specs":                    page.specs,
		},
	}
	if page.reviewsText != "" {
		pc.ReviewsHTML = page.reviewsText
	}

	s.cache.SetDefault(rawURL, pc)
	return pc, nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return string(body), nil
}

type pageData struct {
	title       string
	description string
	images      []string
	specs       map[string]string
	reviewsText string
}

// parsePage walks the markup once, collecting every field of interest.
// html.Parse repairs arbitrary input, so the worst case is empty fields.
func parsePage(pageHTML string) pageData {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return pageData{specs: map[string]string{}}
	}

	p := &pageParser{
		data:      pageData{specs: map[string]string{}},
		seenImage: map[string]bool{},
	}
	p.walk(doc)

	if p.data.title == "" {
		if p.h1 != "" {
			p.data.title = p.h1
		} else if p.docTitle != "" {
			p.data.title = p.docTitle
		} else {
			p.data.title = "Unknown Product"
		}
	}
	if p.data.description == "" {
		p.data.description = p.metaDescription
	}
	if len(p.reviews) > 20 {
		p.reviews = p.reviews[:20]
	}
	p.data.reviewsText = strings.Join(p.reviews, "\n\n")

	return p.data
}

type pageParser struct {
	data pageData

	docTitle        string
	h1              string
	metaDescription string
	reviews         []string
	seenImage       map[string]bool
}

func (p *pageParser) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			p.handleMeta(n)
		case "title":
			if p.docTitle == "" {
				p.docTitle = textContent(n)
			}
		case "h1":
			if p.h1 == "" {
				p.h1 = textContent(n)
			}
			if attr(n, "id") == "productTitle" {
				p.data.title = textContent(n)
			}
		case "img":
			p.handleImage(n)
		case "table":
			p.handleTable(n)
			return
		}

		if isReviewContainer(n) {
			if text := textContent(n); len(text) > 20 {
				p.reviews = append(p.reviews, text)
				return
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *pageParser) handleMeta(n *html.Node) {
	content := attr(n, "content")
	if content == "" {
		return
	}
	switch attr(n, "property") {
	case "og:title":
		p.data.title = content
	case "og:description":
		p.data.description = content
	case "og:image":
		p.addImage(content)
	}
	if attr(n, "name") == "description" && p.metaDescription == "" {
		p.metaDescription = content
	}
}

func (p *pageParser) handleImage(n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		src = attr(n, "data-src")
	}
	if src == "" {
		src = attr(n, "data-old-hires")
	}
	if !strings.HasPrefix(src, "http") {
		return
	}
	// Skip obvious non-product assets.
	if strings.Contains(src, "sprite") || strings.Contains(src, "icon") || strings.Contains(src, "pixel") {
		return
	}
	p.addImage(src)
}

func (p *pageParser) addImage(src string) {
	if p.seenImage[src] || len(p.data.images) >= maxImages {
		return
	}
	p.seenImage[src] = true
	p.data.images = append(p.data.images, src)
}

// handleTable harvests two-column rows as spec key/value pairs. Most
// retail spec blocks are exactly this shape.
func (p *pageParser) handleTable(table *html.Node) {
	var rows func(*html.Node)
	rows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "th" || c.Data == "td") {
					cells = append(cells, textContent(c))
				}
			}
			if len(cells) == 2 {
				key, val := cells[0], cells[1]
				if key != "" && val != "" && len(key) < 50 && len(val) < 200 {
					p.data.specs[key] = val
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rows(c)
		}
	}
	rows(table)
}

func isReviewContainer(n *html.Node) bool {
	if attr(n, "data-hook") == "review-body" {
		return true
	}
	class := attr(n, "class")
	for _, marker := range []string{"review-text-content", "review-text", "comment-content", "user-review"} {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}
