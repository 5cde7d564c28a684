package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// loadTimeout bounds one document fetch or conversion round trip.
const loadTimeout = 2 * time.Minute

// plainTextExts are read from disk directly; everything else in the
// text set goes through the converter service.
var plainTextExts = map[string]struct{}{
	".txt": {},
	".md":  {},
	".csv": {},
}

// Loader turns file paths and URLs into normalized text. Rich document
// formats are converted by an external document-to-markdown service.
type Loader struct {
	client       *http.Client
	converterURL string
}

// NewLoader creates a Loader. converterURL may be empty, in which case
// only plain text files and URLs can be loaded.
func NewLoader(converterURL string) *Loader {
	return &Loader{
		client:       &http.Client{Timeout: loadTimeout},
		converterURL: strings.TrimRight(converterURL, "/"),
	}
}

// Load returns the text content of a file path.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := plainTextExts[ext]; ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrParseFailure, path, err)
		}
		return string(data), nil
	}
	return l.convert(ctx, path)
}

// convert uploads the file to the converter service and returns the
// extracted text.
func (l *Loader) convert(ctx context.Context, path string) (string, error) {
	if l.converterURL == "" {
		return "", fmt.Errorf("%w: no converter configured for %s", ErrParseFailure, path)
	}

	body, contentType, err := multipartFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.converterURL+"/convert", body)
	if err != nil {
		return "", fmt.Errorf("building converter request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: converter request for %s: %v", ErrParseFailure, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: converter returned %d for %s: %s",
			ErrParseFailure, resp.StatusCode, path, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding converter response for %s: %v", ErrParseFailure, path, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("%w: converter produced no text for %s", ErrParseFailure, path)
	}
	return out.Text, nil
}

// LoadURL fetches a web page and extracts its readable text. The
// readability pass strips navigation and boilerplate; when it cannot
// identify an article, the raw page text is used instead.
func (l *Loader) LoadURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: invalid URL %q", ErrParseFailure, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building fetch request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", ErrParseFailure, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetching %s: status %d", ErrParseFailure, rawURL, resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrParseFailure, rawURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(page)), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", ErrParseFailure, rawURL, err)
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return "", fmt.Errorf("%w: no text content at %s", ErrParseFailure, rawURL)
	}
	return text, nil
}

// multipartFile builds a multipart body containing the file under the
// "file" field.
func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copying %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart body: %w", err)
	}
	return strings.NewReader(buf.String()), w.FormDataContentType(), nil
}
