package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_PlainText(t *testing.T) {
	l := NewLoader("")

	for _, name := range []string{"notes.txt", "readme.md", "data.csv"} {
		path := writeTempFile(t, name, "plain content")
		got, err := l.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", name, err)
		}
		if got != "plain content" {
			t.Errorf("Load(%s) = %q", name, got)
		}
	}
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader("")

	_, err := l.Load(context.Background(), "/does/not/exist.txt")
	if !errors.Is(err, ErrParseFailure) {
		t.Errorf("Load() = %v, want ErrParseFailure", err)
	}
}

func TestLoader_Converter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/convert" {
			t.Errorf("path = %q, want /convert", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "manual.pdf" {
			t.Errorf("filename = %q, want manual.pdf", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "converted markdown"})
	}))
	defer srv.Close()

	l := NewLoader(srv.URL)
	path := writeTempFile(t, "manual.pdf", "%PDF-1.4 fake")

	got, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != "converted markdown" {
		t.Errorf("Load() = %q", got)
	}
}

func TestLoader_ConverterFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "conversion crashed", http.StatusInternalServerError)
			},
		},
		{
			name: "empty text",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"text": "  "})
			},
		},
		{
			name: "malformed response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			l := NewLoader(srv.URL)
			path := writeTempFile(t, "doc.pdf", "fake")

			_, err := l.Load(context.Background(), path)
			if !errors.Is(err, ErrParseFailure) {
				t.Errorf("Load() = %v, want ErrParseFailure", err)
			}
		})
	}
}

func TestLoader_NoConverterConfigured(t *testing.T) {
	l := NewLoader("")
	path := writeTempFile(t, "doc.pdf", "fake")

	_, err := l.Load(context.Background(), path)
	if !errors.Is(err, ErrParseFailure) {
		t.Errorf("Load() = %v, want ErrParseFailure", err)
	}
}

func TestLoader_LoadURL(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>Guide</title></head>
<body>
  <nav>Home | About</nav>
  <article>
    <h1>Fixture Design</h1>
    <p>` + strings.Repeat("Clamping force should exceed cutting force. ", 20) + `</p>
  </article>
  <script>trackPageView()</script>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	l := NewLoader("")
	got, err := l.LoadURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("LoadURL() error: %v", err)
	}
	if !strings.Contains(got, "Clamping force") {
		t.Errorf("LoadURL() missing article text: %q", got)
	}
	if strings.Contains(got, "trackPageView") {
		t.Errorf("LoadURL() leaked script content: %q", got)
	}
}

func TestLoader_LoadURL_Failures(t *testing.T) {
	t.Run("invalid scheme", func(t *testing.T) {
		l := NewLoader("")
		if _, err := l.LoadURL(context.Background(), "ftp://example.com/x"); !errors.Is(err, ErrParseFailure) {
			t.Errorf("LoadURL() = %v, want ErrParseFailure", err)
		}
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		l := NewLoader("")
		if _, err := l.LoadURL(context.Background(), srv.URL); !errors.Is(err, ErrParseFailure) {
			t.Errorf("LoadURL() = %v, want ErrParseFailure", err)
		}
	})
}
