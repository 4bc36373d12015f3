// Package catalog loads the read-only soundtrack and filter lists the
// pipeline resolves selections against. Catalogs are versioned JSON files
// shipped next to the service; they are loaded once at startup and never
// mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// SoundtrackEntry is one selectable background track.
type SoundtrackEntry struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	FileRef         string  `json:"fileRef"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Genre           string  `json:"genre,omitempty"`
}

// FilterEntry is one selectable visual-overlay asset.
type FilterEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileRef     string `json:"fileRef"`
	PreviewRef  string `json:"previewRef,omitempty"`
	Description string `json:"description,omitempty"`
}

// Catalog provides lookup-by-id over both lists.
type Catalog struct {
	soundtracks []SoundtrackEntry
	filters     []FilterEntry
	soundtrack  map[string]SoundtrackEntry
	filter      map[string]FilterEntry
}

// Load reads both catalog files. An empty path yields an empty list, not an
// error, so deployments without one of the catalogs stay valid.
func Load(soundtracksPath, filtersPath string) (*Catalog, error) {
	c := &Catalog{
		soundtrack: make(map[string]SoundtrackEntry),
		filter:     make(map[string]FilterEntry),
	}

	if soundtracksPath != "" {
		if err := readJSON(soundtracksPath, &c.soundtracks); err != nil {
			return nil, fmt.Errorf("failed to load soundtrack catalog: %w", err)
		}
	}
	if filtersPath != "" {
		if err := readJSON(filtersPath, &c.filters); err != nil {
			return nil, fmt.Errorf("failed to load filter catalog: %w", err)
		}
	}

	for _, entry := range c.soundtracks {
		c.soundtrack[entry.ID] = entry
	}
	for _, entry := range c.filters {
		c.filter[entry.ID] = entry
	}
	return c, nil
}

// Soundtracks returns the full soundtrack list in file order.
func (c *Catalog) Soundtracks() []SoundtrackEntry { return c.soundtracks }

// Filters returns the full filter list in file order.
func (c *Catalog) Filters() []FilterEntry { return c.filters }

// Soundtrack looks up a soundtrack by id.
func (c *Catalog) Soundtrack(id string) (SoundtrackEntry, bool) {
	entry, ok := c.soundtrack[id]
	return entry, ok
}

// Filter looks up a filter by id.
func (c *Catalog) Filter(id string) (FilterEntry, bool) {
	entry, ok := c.filter[id]
	return entry, ok
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
