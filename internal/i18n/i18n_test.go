package i18n

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeResources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"en.json":    `{"deck.next": "Next", "deck.prev": "Previous"}`,
		"es.json":    `{"deck.next": "Siguiente"}`,
		"readme.txt": "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestTranslate(t *testing.T) {
	if err := Init(writeResources(t)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tests := []struct {
		lang, key, want string
	}{
		{"es", "deck.next", "Siguiente"},
		{"es", "deck.prev", "Previous"},
		{"hu", "deck.next", "Next"},
		{"en", "deck.missing", "deck.missing"},
	}
	for _, tt := range tests {
		if got := T(tt.lang, tt.key); got != tt.want {
			t.Errorf("T(%q, %q) = %q, want %q", tt.lang, tt.key, got, tt.want)
		}
	}
	if got := GetAvailableLangs(); !reflect.DeepEqual(got, []string{"en", "es"}) {
		t.Errorf("langs = %v", got)
	}
}

func TestInitRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(dir); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestGetLang(t *testing.T) {
	if err := Init(writeResources(t)); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetLang(r); got != "en" {
		t.Errorf("no cookie: %q", got)
	}
	r.AddCookie(&http.Cookie{Name: "lang", Value: "es"})
	if got := GetLang(r); got != "es" {
		t.Errorf("es cookie: %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "lang", Value: "xx"})
	if got := GetLang(r); got != "en" {
		t.Errorf("unknown lang should fall back, got %q", got)
	}
}
