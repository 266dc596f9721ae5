package md2docx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata holds the cover page values of a build. Absent keys stay empty and
// leave the matching placeholder untouched.
type Metadata struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Author   string `yaml:"author"`
	Date     string `yaml:"date"`
}

// IsZero reports whether no cover value is set.
func (m Metadata) IsZero() bool {
	return strings.TrimSpace(m.Title) == "" && strings.TrimSpace(m.Subtitle) == "" &&
		strings.TrimSpace(m.Author) == "" && strings.TrimSpace(m.Date) == ""
}

// Merge returns m with every empty field filled from other.
func (m Metadata) Merge(other Metadata) Metadata {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&m.Title, other.Title)
	fill(&m.Subtitle, other.Subtitle)
	fill(&m.Author, other.Author)
	fill(&m.Date, other.Date)
	return m
}

// ParseMetadata decodes a metadata YAML document. An empty document yields empty
// metadata.
func ParseMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return meta, nil
}

// LoadMetadata reads a metadata YAML file. A missing file yields empty metadata.
func LoadMetadata(path string) (Metadata, error) {
	if path == "" {
		return Metadata{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		Debug("metadata file %s not found; cover left as is", path)
		return Metadata{}, nil
	}
	if err != nil {
		return Metadata{}, NewDocumentError("read metadata", path, err)
	}
	meta, err := ParseMetadata(data)
	if err != nil {
		return Metadata{}, NewDocumentError("read metadata", path, err)
	}
	return meta, nil
}
