package md2docx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const defaultSourceType = "Book"

var sourceTagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Author is one name of a source's author list. A corporate author is written as a
// single name; otherwise Last (and First, when set) are used.
type Author struct {
	Corporate string `yaml:"corporate"`
	Last      string `yaml:"last"`
	First     string `yaml:"first"`
}

// UnmarshalYAML accepts either a mapping or a bare scalar, the latter being a
// corporate author.
func (a *Author) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*a = Author{Corporate: strings.TrimSpace(node.Value)}
		return nil
	}
	type plain Author
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*a = Author{
		Corporate: strings.TrimSpace(p.Corporate),
		Last:      strings.TrimSpace(p.Last),
		First:     strings.TrimSpace(p.First),
	}
	return nil
}

// IsCorporate reports whether the author is written as a single organisation name.
func (a Author) IsCorporate() bool {
	return a.Corporate != ""
}

func (a Author) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Last, validation.When(a.Corporate == "",
			validation.Required.Error("a personal author needs a last name"))),
	)
}

// Source is one bibliography record.
type Source struct {
	Tag       string   `yaml:"tag"`
	Type      string   `yaml:"type"`
	Title     string   `yaml:"title"`
	Year      string   `yaml:"year"`
	City      string   `yaml:"city"`
	Publisher string   `yaml:"publisher"`
	Authors   []Author `yaml:"authors"`
}

func (s Source) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Tag, validation.Required, validation.Match(sourceTagPattern)),
		validation.Field(&s.Type, validation.Required),
		validation.Field(&s.Authors),
	)
}

func (s *Source) normalize() {
	s.Tag = strings.TrimSpace(s.Tag)
	s.Type = strings.TrimSpace(s.Type)
	if s.Type == "" {
		s.Type = defaultSourceType
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Year = strings.TrimSpace(s.Year)
	s.City = strings.TrimSpace(s.City)
	s.Publisher = strings.TrimSpace(s.Publisher)
}

type sourceFile struct {
	Sources []Source `yaml:"sources"`
}

// ParseSources decodes a source list document (a top-level "sources" sequence).
// Records without a tag are dropped; the rest keep their order and are validated.
func ParseSources(data []byte) ([]Source, error) {
	var file sourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}

	sources := make([]Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		s.normalize()
		if s.Tag == "" {
			Debug("dropping source without tag (title %q)", s.Title)
			continue
		}
		sources = append(sources, s)
	}

	if err := ValidateSources(sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// ValidateSources checks every record and that tags are unique.
func ValidateSources(sources []Source) error {
	fields := make(map[string]error)
	seen := make(map[string]int, len(sources))

	for i, s := range sources {
		key := fmt.Sprintf("sources[%d]", i)
		if err := s.Validate(); err != nil {
			var fieldErrs validation.Errors
			if !errors.As(err, &fieldErrs) {
				return err
			}
			for field, ferr := range fieldErrs {
				fields[key+"."+field] = ferr
			}
		}
		if first, dup := seen[s.Tag]; dup && s.Tag != "" {
			fields[key+".tag"] = fmt.Errorf("duplicates the tag of sources[%d]", first)
			continue
		}
		seen[s.Tag] = i
	}

	if len(fields) > 0 {
		return newValidationError("", fields)
	}
	return nil
}

// LoadSources reads a source list file. A missing file yields no sources.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		Debug("sources file %s not found", path)
		return nil, nil
	}
	if err != nil {
		return nil, NewDocumentError("read sources", path, err)
	}
	sources, err := ParseSources(data)
	if err != nil {
		return nil, WithContext(err, "load sources", map[string]interface{}{"path": path})
	}
	return sources, nil
}

// SourceTags returns the set of tags in sources.
func SourceTags(sources []Source) map[string]bool {
	tags := make(map[string]bool, len(sources))
	for _, s := range sources {
		tags[s.Tag] = true
	}
	return tags
}
