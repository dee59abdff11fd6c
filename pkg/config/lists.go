package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// listsFile is the on-disk shape of a curated lists override.
// Modes:
//   - replace: the file's lists are used as-is
//   - extend:  the file's lists are appended to the built-in defaults
type listsFile struct {
	Mode  string         `yaml:"mode"`
	Lists patterns.Lists `yaml:"lists"`
}

// LoadLists reads a YAML lists file and resolves it against the
// built-in defaults. An empty path returns the defaults unchanged.
func LoadLists(path string) (patterns.Lists, error) {
	base := patterns.DefaultLists()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read lists file: %w", err)
	}

	var f listsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, fmt.Errorf("parse lists file %s: %w", path, err)
	}

	switch f.Mode {
	case "", "extend":
		return mergeLists(base, f.Lists), nil
	case "replace":
		return f.Lists, nil
	default:
		return base, fmt.Errorf("lists file %s: unknown mode %q", path, f.Mode)
	}
}

func mergeLists(base, extra patterns.Lists) patterns.Lists {
	out := base.Clone()
	out.Safe = append(out.Safe, extra.Safe...)
	out.MediumRisk = append(out.MediumRisk, extra.MediumRisk...)
	out.AmbiguousVerbs = append(out.AmbiguousVerbs, extra.AmbiguousVerbs...)
	out.Placeholders = append(out.Placeholders, extra.Placeholders...)
	out.Compound = append(out.Compound, extra.Compound...)
	if out.HighRisk == nil {
		out.HighRisk = map[patterns.Category][]string{}
	}
	for cat, phrases := range extra.HighRisk {
		out.HighRisk[cat] = append(out.HighRisk[cat], phrases...)
	}
	return out
}
