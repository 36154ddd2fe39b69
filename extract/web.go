// Copyright 2025 Emberlight Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Web extraction strategy names recorded on Content.Method.
const (
	MethodWebDOM      = "web-dom-score"
	MethodWebMetaDesc = "web-meta-description"
	MethodDiagnostic  = "diagnostic"
)

const (
	// minWebTextLen is the acceptance threshold for scored page content.
	minWebTextLen = 250
	// minMetaDescLen is the acceptance threshold for the meta-description fallback.
	minMetaDescLen = 40

	defaultUserAgent = "Mozilla/5.0 (compatible; distill/1.0)"
)

// noisePattern matches class/id values of elements that are almost never
// article content.
var noisePattern = regexp.MustCompile(`(?i)(^|[-_ ])(comment|sidebar|footer|header|nav|menu|banner|advert|ads?|promo|share|social|cookie|popup|subscribe|related|breadcrumb)([-_ ]|$)`)

// strippedSelectors are removed wholesale before scoring.
const strippedSelectors = "script, style, noscript, iframe, nav, header, footer, aside, form, svg, button"

// WebExtractor extracts readable text from web pages by scoring candidate
// content containers. It never returns an error: failures degrade to a
// diagnostic placeholder so a corrupt or paywalled page cannot abort a
// batch run.
type WebExtractor struct {
	client *http.Client
	logger *slog.Logger
}

// NewWebExtractor creates a web extractor. A nil client gets a default
// with a conservative timeout; per-request cancellation still comes from
// the caller's context.
func NewWebExtractor(client *http.Client) *WebExtractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebExtractor{
		client: client,
		logger: slog.Default().With("component", "web-extractor"),
	}
}

// Extract fetches pageURL and returns its readable text, the page's meta
// description, or a diagnostic placeholder, in that order of preference.
func (w *WebExtractor) Extract(ctx context.Context, pageURL string) *Result {
	body, err := w.fetch(ctx, pageURL)
	if err != nil {
		w.logger.Warn("page fetch failed", "url", pageURL, "err", err)
		return diagnosticResult(pageURL, fmt.Sprintf("page fetch failed: %v", err))
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		w.logger.Warn("page parse failed", "url", pageURL, "err", err)
		return diagnosticResult(pageURL, fmt.Sprintf("page parse failed: %v", err))
	}

	return extractFromDocument(doc, pageURL)
}

func (w *WebExtractor) fetch(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// extractFromDocument runs the scoring chain over a parsed document.
// Shared with the file extractor for local HTML files.
func extractFromDocument(doc *goquery.Document, source string) *Result {
	title := strings.TrimSpace(doc.Find("title").First().Text())

	stripNoise(doc)

	best := selectContent(doc)
	if len(best) >= minWebTextLen {
		return &Result{Text: best, Method: MethodWebDOM, Title: title}
	}

	if desc := metaDescription(doc); len(desc) >= minMetaDescLen {
		text := desc
		if title != "" {
			text = title + "\n\n" + desc
		}
		return &Result{Text: text, Method: MethodWebMetaDesc, Title: title}
	}

	res := diagnosticResult(source, fmt.Sprintf(
		"page yielded %d characters of content (minimum %d) and no usable meta description",
		len(best), minWebTextLen))
	res.Title = title
	return res
}

// stripNoise removes elements that never carry article content, plus
// anything whose class or id matches the noise heuristic.
func stripNoise(doc *goquery.Document) {
	doc.Find(strippedSelectors).Remove()
	doc.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")
		if noisePattern.MatchString(class) || noisePattern.MatchString(id) {
			sel.Remove()
		}
	})
}

// selectContent scores candidate containers and returns the text of the
// highest-scoring one. Score = text length + weighted paragraph and
// heading counts, so a long comment-free article body beats a wrapper
// stuffed with short fragments.
func selectContent(doc *goquery.Document) string {
	var bestText string
	var bestScore int

	doc.Find("article, main, section, div, body").Each(func(_ int, sel *goquery.Selection) {
		text := collapseWhitespace(blockText(sel))
		if text == "" {
			return
		}
		paragraphs := sel.Find("p").Length()
		headings := sel.Find("h1, h2, h3, h4").Length()
		score := len(text) + 25*paragraphs + 15*headings
		if score > bestScore {
			bestScore = score
			bestText = text
		}
	})

	return bestText
}

// blockText joins the block-level descendants of sel with paragraph
// breaks; if sel has no block children its own text is used.
func blockText(sel *goquery.Selection) string {
	var blocks []string
	sel.Find("p, h1, h2, h3, h4, h5, li, pre, blockquote, td").Each(func(_ int, b *goquery.Selection) {
		if t := strings.TrimSpace(b.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		return sel.Text()
	}
	return strings.Join(blocks, "\n\n")
}

func metaDescription(doc *goquery.Document) string {
	for _, selector := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if desc := strings.TrimSpace(content); desc != "" {
				return desc
			}
		}
	}
	return ""
}

var whitespaceRun = regexp.MustCompile(`[ \t\r\f]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

// collapseWhitespace normalizes runs of spaces and excess blank lines
// while preserving paragraph breaks.
func collapseWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// diagnosticResult builds the placeholder substituted for real content
// when extraction degrades. The pipeline still distills it so the user
// sees why content was insufficient.
func diagnosticResult(source, reason string) *Result {
	return &Result{
		Text: fmt.Sprintf(
			"Content extraction failed for %s.\n\nReason: %s.\n\nNo readable content could be recovered from this source.",
			source, reason),
		Method:       MethodDiagnostic,
		FallbackUsed: true,
	}
}
