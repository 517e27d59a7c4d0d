package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gnemet/LessonForge/internal/lesson"
)

// CatalogFS contains the audience catalog shipped with the binary.
//
//go:embed catalog/*.json
var CatalogFS embed.FS

// Entry describes how lessons are pitched and illustrated for one audience.
type Entry struct {
	Key             string          `json:"key"`
	Audience        lesson.Audience `json:"audience"`
	Label           string          `json:"label"`
	Description     string          `json:"description"`
	Icon            string          `json:"icon"`
	Tone            string          `json:"tone"`
	ExampleQuestion string          `json:"example_question"`
	ImageStyle      string          `json:"image_style"`
}

var (
	loadOnce sync.Once
	entries  []Entry
	loadErr  error
)

func load() {
	content, err := CatalogFS.ReadFile("catalog/audiences.json")
	if err != nil {
		loadErr = fmt.Errorf("could not read embedded audience catalog: %w", err)
		return
	}
	if err := json.Unmarshal(content, &entries); err != nil {
		loadErr = fmt.Errorf("could not parse audience catalog: %w", err)
		return
	}
	for _, e := range entries {
		if !e.Audience.Valid() {
			loadErr = fmt.Errorf("audience catalog: unknown audience %q", e.Audience)
			return
		}
	}
}

// Audiences returns the catalog entries in display order.
func Audiences() []Entry {
	loadOnce.Do(load)
	if loadErr != nil {
		panic(loadErr)
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the catalog entry for an audience.
func Lookup(a lesson.Audience) (Entry, error) {
	for _, e := range Audiences() {
		if e.Audience == a {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q", lesson.ErrUnknownAudience, a)
}

// MustLookup is Lookup for audiences already validated by lesson.ParseAudience.
func MustLookup(a lesson.Audience) Entry {
	e, err := Lookup(a)
	if err != nil {
		panic(err)
	}
	return e
}
