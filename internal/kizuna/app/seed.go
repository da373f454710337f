package app

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

// SeedEntry is one memory in a YAML seed file.
type SeedEntry struct {
	CoupleID   string `yaml:"couple_id"`
	AuthorID   string `yaml:"author_id"`
	Visibility string `yaml:"visibility"`
	Category   string `yaml:"category"`
	Content    string `yaml:"content"`
}

// seedFile accepts either a bare list or a document with a memories key.
type seedFile struct {
	Memories []SeedEntry `yaml:"memories"`
}

// ReadSeed parses a YAML seed file into drafts. defaultCouple fills entries
// that omit couple_id. Field validation is left to the backend.
func ReadSeed(r io.Reader, defaultCouple string) ([]memory.Draft, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("seed: read: %w", err)
	}

	var entries []SeedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var doc seedFile
		if derr := yaml.Unmarshal(data, &doc); derr != nil {
			return nil, fmt.Errorf("seed: parse: %w", errors.Join(err, derr))
		}
		entries = doc.Memories
	}

	drafts := make([]memory.Draft, 0, len(entries))
	for _, e := range entries {
		couple := e.CoupleID
		if couple == "" {
			couple = defaultCouple
		}
		drafts = append(drafts, memory.Draft{
			CoupleID:   couple,
			AuthorID:   e.AuthorID,
			Visibility: memory.Visibility(e.Visibility),
			Category:   memory.Category(e.Category),
			Content:    e.Content,
		})
	}
	return drafts, nil
}
