package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCADClient_Parse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse" {
			t.Errorf("path = %q, want /parse", r.URL.Path)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("reading form file: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"filename": "bracket.step",
			"parts": []map[string]any{
				{"part_id": "bracket-001", "volume": 12.5, "properties_text": "steel bracket, 4 holes"},
				{"part_id": "pin-002", "volume": 0.8, "properties_text": "dowel pin"},
			},
		})
	}))
	defer srv.Close()

	c := NewCADClient(srv.URL)
	path := writeTempFile(t, "bracket.step", "ISO-10303-21;")

	parts, err := c.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Parse() returned %d parts, want 2", len(parts))
	}
	if parts[0].PartID != "bracket-001" || parts[0].Volume != 12.5 {
		t.Errorf("parts[0] = %+v", parts[0])
	}
	if parts[1].Properties != "dowel pin" {
		t.Errorf("parts[1].Properties = %q", parts[1].Properties)
	}
}

func TestCADClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "parser error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "unreadable geometry", http.StatusUnprocessableEntity)
			},
		},
		{
			name: "no parts",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"filename": "x.step", "parts": []any{}})
			},
		},
		{
			name: "part without id",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"filename": "x.step",
					"parts":    []map[string]any{{"volume": 1.0, "properties_text": "anonymous"}},
				})
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

			c := NewCADClient(srv.URL)
			path := writeTempFile(t, "x.step", "ISO-10303-21;")

			_, err := c.Parse(context.Background(), path)
			if !errors.Is(err, ErrParseFailure) {
				t.Errorf("Parse() = %v, want ErrParseFailure", err)
			}
		})
	}
}

func TestCADClient_NoParserConfigured(t *testing.T) {
	c := NewCADClient("")
	if _, err := c.Parse(context.Background(), "x.step"); !errors.Is(err, ErrParseFailure) {
		t.Errorf("Parse() = %v, want ErrParseFailure", err)
	}
}
