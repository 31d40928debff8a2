package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

// LoadScoring returns the default scoring constants overlaid with the TOML file at path.
// An empty path yields the defaults. Keys absent from the file keep their default value.
func LoadScoring(path string) (strain.Scoring, error) {
	scoring := strain.DefaultScoring()
	if strings.TrimSpace(path) == "" {
		return scoring, nil
	}

	meta, err := toml.DecodeFile(path, &scoring)
	if err != nil {
		return strain.Scoring{}, fmt.Errorf("decode scoring config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return strain.Scoring{}, fmt.Errorf("scoring config %s: unknown keys %v", path, undecoded)
	}
	return scoring, nil
}

// ParseScoring decodes a TOML document over the defaults.
func ParseScoring(doc string) (strain.Scoring, error) {
	scoring := strain.DefaultScoring()
	meta, err := toml.Decode(doc, &scoring)
	if err != nil {
		return strain.Scoring{}, fmt.Errorf("decode scoring config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return strain.Scoring{}, fmt.Errorf("scoring config: unknown keys %v", undecoded)
	}
	return scoring, nil
}
