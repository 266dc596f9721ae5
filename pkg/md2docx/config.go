package md2docx

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config contains the template conventions and behaviour switches of the linker
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string

	// FigureLabel and TableLabel are the caption labels. They name the SEQ
	// sequences and appear in front of every caption and cross-reference.
	FigureLabel string
	TableLabel  string

	// HeadingStyle is the paragraph style that opens the sample region and titles
	// the references block.
	HeadingStyle string
	// CaptionStyle is applied to resolved caption paragraphs.
	CaptionStyle string
	// ReferencesHeading is the text of the heading that closes the sample region.
	ReferencesHeading string

	// ListOfTablesHeading and ListOfTablesHeadingStyle describe the heading
	// inserted above a generated list of tables.
	ListOfTablesHeading      string
	ListOfTablesHeadingStyle string

	// Cover page placeholders, matched against whole text nodes.
	TitlePlaceholder    string
	SubtitlePlaceholder string
	AuthorLabel         string
	DateLabel           string

	// CitationLCID is the locale id written into CITATION fields.
	CitationLCID int
	// CitationPlaceholder is the cached result shown until fields are updated.
	CitationPlaceholder string

	// StrictReferences turns cross-references to undeclared ids into a build
	// failure instead of a warning.
	StrictReferences bool
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:                 "info",
		FigureLabel:              "Figura",
		TableLabel:               "Tabla",
		HeadingStyle:             "Heading1",
		CaptionStyle:             "Caption",
		ReferencesHeading:        "Referencias",
		ListOfTablesHeading:      "Lista de tablas",
		ListOfTablesHeadingStyle: "TOCHeading",
		TitlePlaceholder:         "TÍTULO DEL DOCUMENTO",
		SubtitlePlaceholder:      "Subtítulo del documento",
		AuthorLabel:              "Elaborado por:",
		DateLabel:                "Fecha:",
		CitationLCID:             12298,
		CitationPlaceholder:      "(Cita)",
		StrictReferences:         false,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	stringVars := map[string]*string{
		"MD2DOCX_LOG_LEVEL":                    &config.LogLevel,
		"MD2DOCX_FIGURE_LABEL":                 &config.FigureLabel,
		"MD2DOCX_TABLE_LABEL":                  &config.TableLabel,
		"MD2DOCX_HEADING_STYLE":                &config.HeadingStyle,
		"MD2DOCX_CAPTION_STYLE":                &config.CaptionStyle,
		"MD2DOCX_REFERENCES_HEADING":           &config.ReferencesHeading,
		"MD2DOCX_LIST_OF_TABLES_HEADING":       &config.ListOfTablesHeading,
		"MD2DOCX_LIST_OF_TABLES_HEADING_STYLE": &config.ListOfTablesHeadingStyle,
		"MD2DOCX_TITLE_PLACEHOLDER":            &config.TitlePlaceholder,
		"MD2DOCX_SUBTITLE_PLACEHOLDER":         &config.SubtitlePlaceholder,
		"MD2DOCX_AUTHOR_LABEL":                 &config.AuthorLabel,
		"MD2DOCX_DATE_LABEL":                   &config.DateLabel,
		"MD2DOCX_CITATION_PLACEHOLDER":         &config.CitationPlaceholder,
	}
	for name, field := range stringVars {
		if val := os.Getenv(name); val != "" {
			*field = val
		}
	}

	// MD2DOCX_CITATION_LCID
	if val := os.Getenv("MD2DOCX_CITATION_LCID"); val != "" {
		if lcid, err := strconv.Atoi(val); err == nil {
			config.CitationLCID = lcid
		}
	}

	// MD2DOCX_STRICT_REFERENCES
	if val := os.Getenv("MD2DOCX_STRICT_REFERENCES"); val != "" {
		config.StrictReferences = parseBool(val)
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	fill := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	fill(&config.LogLevel, defaults.LogLevel)
	fill(&config.FigureLabel, defaults.FigureLabel)
	fill(&config.TableLabel, defaults.TableLabel)
	fill(&config.HeadingStyle, defaults.HeadingStyle)
	fill(&config.CaptionStyle, defaults.CaptionStyle)
	fill(&config.ReferencesHeading, defaults.ReferencesHeading)
	fill(&config.ListOfTablesHeading, defaults.ListOfTablesHeading)
	fill(&config.ListOfTablesHeadingStyle, defaults.ListOfTablesHeadingStyle)
	fill(&config.TitlePlaceholder, defaults.TitlePlaceholder)
	fill(&config.SubtitlePlaceholder, defaults.SubtitlePlaceholder)
	fill(&config.AuthorLabel, defaults.AuthorLabel)
	fill(&config.DateLabel, defaults.DateLabel)
	fill(&config.CitationPlaceholder, defaults.CitationPlaceholder)

	if config.CitationLCID == 0 {
		config.CitationLCID = defaults.CitationLCID
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error", "off")),
		validation.Field(&c.FigureLabel, validation.Required),
		validation.Field(&c.TableLabel, validation.Required, validation.By(func(v interface{}) error {
			if v.(string) == c.FigureLabel {
				return errors.New("must differ from the figure label")
			}
			return nil
		})),
		validation.Field(&c.HeadingStyle, validation.Required),
		validation.Field(&c.CaptionStyle, validation.Required),
		validation.Field(&c.ReferencesHeading, validation.Required),
		validation.Field(&c.ListOfTablesHeading, validation.Required),
		validation.Field(&c.ListOfTablesHeadingStyle, validation.Required),
		validation.Field(&c.CitationLCID, validation.Required, validation.Min(1)),
	)
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return newValidationError("config", fieldErrs)
	}
	return err
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Outside the lock: the logger reads the config back.
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
