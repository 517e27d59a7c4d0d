package i18n

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const DefaultLang = "en"

var (
	mu           sync.RWMutex
	translations = make(map[string]map[string]string)
)

// Init loads every <lang>.json in dir, replacing what was loaded before.
func Init(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	loaded := make(map[string]map[string]string)
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		lang := f.Name()[:len(f.Name())-5]
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return err
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("%s: %w", f.Name(), err)
		}
		loaded[lang] = t
	}
	mu.Lock()
	translations = loaded
	mu.Unlock()
	return nil
}

func T(lang, key string) string {
	mu.RLock()
	defer mu.RUnlock()
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	// Fallback to en
	if t, ok := translations[DefaultLang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	return key
}

// GetLang returns the lang cookie when it names a loaded language.
func GetLang(r *http.Request) string {
	cookie, err := r.Cookie("lang")
	if err == nil {
		mu.RLock()
		_, ok := translations[cookie.Value]
		mu.RUnlock()
		if ok {
			return cookie.Value
		}
	}
	return DefaultLang
}

func GetAvailableLangs() []string {
	mu.RLock()
	langs := make([]string, 0, len(translations))
	for l := range translations {
		langs = append(langs, l)
	}
	mu.RUnlock()
	if len(langs) == 0 {
		return []string{DefaultLang}
	}
	sort.Strings(langs)
	return langs
}
