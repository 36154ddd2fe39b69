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
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// File extraction strategy names recorded on Content.Method.
const (
	MethodPDFLayout = "pdf-layout"
	MethodPDFRaw    = "pdf-raw"
	MethodPDFPaged  = "pdf-paged"
	MethodPDFPlain  = "pdf-plain"
	MethodDocx      = "docx-xml"
	MethodPlainText = "plain-text"
	MethodHTMLFile  = "html-dom-score"
	MethodImageOCR  = "image-ocr"
)

const (
	// minFileTextLen is the acceptance threshold for file strategy output.
	minFileTextLen = 100
	// maxPagedPages caps the page-by-page PDF strategy.
	maxPagedPages = 200
)

// FileConfig holds the external tool configuration for file extraction.
type FileConfig struct {
	Pdftotext     string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo       string // binary name or absolute path; if empty -> "pdfinfo"
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
}

// FileExtractor extracts plain text from uploaded documents by trying an
// ordered strategy chain per file category. Like web extraction it never
// returns an error: a corrupt document degrades to a diagnostic
// placeholder instead of aborting a batch run.
type FileExtractor struct {
	cfg    FileConfig
	runner Runner
	logger *slog.Logger
}

// pdfStrategy is one entry in the PDF chain. The first strategy whose
// output clears minFileTextLen wins.
type pdfStrategy struct {
	name string
	run  func(ctx context.Context, path string) (string, error)
}

// NewFileExtractor creates a file extractor using external tools through
// the default exec runner.
func NewFileExtractor(cfg FileConfig) *FileExtractor {
	return newFileExtractor(cfg, execRunner{})
}

// NewFileExtractorWithRunner creates a file extractor with a custom
// command runner. Used by tests to stub the external binaries.
func NewFileExtractorWithRunner(cfg FileConfig, runner Runner) *FileExtractor {
	return newFileExtractor(cfg, runner)
}

func newFileExtractor(cfg FileConfig, runner Runner) *FileExtractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &FileExtractor{
		cfg:    cfg,
		runner: runner,
		logger: slog.Default().With("component", "file-extractor"),
	}
}

// Extract picks a strategy chain based on file extension and returns the
// first acceptable text, or a diagnostic placeholder.
func (f *FileExtractor) Extract(ctx context.Context, path string) *Result {
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return f.extractPDF(ctx, path, name)
	case ".docx":
		return f.singleStrategy(name, MethodDocx, func() (string, error) {
			return extractDocx(path)
		})
	case ".txt", ".md":
		return f.singleStrategy(name, MethodPlainText, func() (string, error) {
			data, err := os.ReadFile(path)
			return string(data), err
		})
	case ".html", ".htm":
		return f.singleStrategy(name, MethodHTMLFile, func() (string, error) {
			return extractHTMLFile(path)
		})
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp":
		return f.singleStrategy(name, MethodImageOCR, func() (string, error) {
			return f.tesseractOCR(ctx, path)
		})
	default:
		return diagnosticResult(name, fmt.Sprintf("unsupported file type %q", filepath.Ext(path)))
	}
}

// extractPDF tries the PDF strategies in fixed priority order. The first
// strategy whose output exceeds the minimum threshold wins and its name
// is recorded; FallbackUsed stays false for any chain winner. Only when
// the whole chain fails is a diagnostic placeholder produced, after a
// lightweight page-count probe.
func (f *FileExtractor) extractPDF(ctx context.Context, path, name string) *Result {
	strategies := []pdfStrategy{
		{MethodPDFLayout, func(ctx context.Context, path string) (string, error) {
			return f.pdftotext(ctx, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		}},
		{MethodPDFRaw, func(ctx context.Context, path string) (string, error) {
			return f.pdftotext(ctx, "-raw", "-enc", "UTF-8", path, "-")
		}},
		{MethodPDFPaged, f.pdfPageByPage},
		{MethodPDFPlain, func(ctx context.Context, path string) (string, error) {
			return f.pdftotext(ctx, "-nopgbrk", path, "-")
		}},
	}

	var reasons []string
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			return diagnosticResult(name, fmt.Sprintf("extraction cancelled: %v", ctx.Err()))
		}
		text, err := strategy.run(ctx, path)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", strategy.name, err))
			continue
		}
		text = collapseWhitespace(text)
		if len(text) >= minFileTextLen {
			f.logger.Debug("pdf strategy succeeded", "file", name, "strategy", strategy.name, "chars", len(text))
			return &Result{Text: text, Method: strategy.name, Title: name}
		}
		reasons = append(reasons, fmt.Sprintf("%s: %d chars (minimum %d)", strategy.name, len(text), minFileTextLen))
	}

	pages := f.probePageCount(ctx, path)
	reason := fmt.Sprintf("all PDF strategies produced insufficient text [%s]", strings.Join(reasons, "; "))
	if pages > 0 {
		reason = fmt.Sprintf("%s; document has %d page(s), possibly scanned or image-only", reason, pages)
	}
	f.logger.Warn("pdf extraction degraded", "file", name, "pages", pages)
	res := diagnosticResult(name, reason)
	res.Title = name
	return res
}

func (f *FileExtractor) pdftotext(ctx context.Context, args ...string) (string, error) {
	out, errb, err := f.runner.Run(ctx, f.cfg.Pdftotext, args...)
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncateString(string(errb), 512))
	}
	return string(out), nil
}

// pdfPageByPage extracts each page separately, skipping pages that fail.
// Recovers documents where one corrupt page aborts a whole-file parse.
func (f *FileExtractor) pdfPageByPage(ctx context.Context, path string) (string, error) {
	pages := f.probePageCount(ctx, path)
	if pages <= 0 {
		return "", fmt.Errorf("page count unavailable")
	}
	if pages > maxPagedPages {
		pages = maxPagedPages
	}

	var b strings.Builder
	extracted := 0
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		n := strconv.Itoa(page)
		text, err := f.pdftotext(ctx, "-f", n, "-l", n, path, "-")
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
		extracted++
	}
	if extracted == 0 {
		return "", fmt.Errorf("no pages yielded text")
	}
	return b.String(), nil
}

var pdfinfoPagesPattern = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// probePageCount asks pdfinfo for the page count; 0 when unavailable.
func (f *FileExtractor) probePageCount(ctx context.Context, path string) int {
	out, _, err := f.runner.Run(ctx, f.cfg.Pdfinfo, path)
	if err != nil {
		return 0
	}
	m := pdfinfoPagesPattern.FindSubmatch(out)
	if m == nil {
		return 0
	}
	pages, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return pages
}

func (f *FileExtractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := f.runner.Run(ctx, f.cfg.Tesseract, path, "stdout", "-l", f.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncateString(string(errb), 512))
	}
	return string(out), nil
}

// singleStrategy runs a one-shot extraction with the shared threshold and
// diagnostic fallback handling.
func (f *FileExtractor) singleStrategy(name, method string, run func() (string, error)) *Result {
	text, err := run()
	if err != nil {
		f.logger.Warn("file extraction degraded", "file", name, "method", method, "err", err)
		res := diagnosticResult(name, fmt.Sprintf("%s failed: %v", method, err))
		res.Title = name
		return res
	}
	text = collapseWhitespace(text)
	if len(text) < minFileTextLen {
		res := diagnosticResult(name, fmt.Sprintf(
			"%s yielded %d characters (minimum %d)", method, len(text), minFileTextLen))
		res.Title = name
		return res
	}
	return &Result{Text: text, Method: method, Title: name}
}

// extractDocx reads the main document part of a DOCX archive and strips
// the WordprocessingML markup, keeping paragraph breaks.
func extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("docx open: %w", err)
	}
	defer archive.Close()

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("docx: word/document.xml missing")
	}

	reader, err := document.Open()
	if err != nil {
		return "", err
	}
	defer reader.Close()

	decoder := xml.NewDecoder(reader)
	var b strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx parse: %w", err)
		}
		switch tok := token.(type) {
		case xml.CharData:
			b.Write(tok)
		case xml.EndElement:
			if tok.Name.Local == "p" {
				b.WriteString("\n\n")
			}
		}
	}
	return b.String(), nil
}

// extractHTMLFile runs the web content scorer over a local HTML file.
func extractHTMLFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return "", err
	}
	res := extractFromDocument(doc, filepath.Base(path))
	if res.FallbackUsed {
		return "", fmt.Errorf("no scoreable content")
	}
	return res.Text, nil
}
