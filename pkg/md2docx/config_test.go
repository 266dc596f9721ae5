package md2docx

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.LogLevel != "info" {
		t.Errorf("Expected default LogLevel to be 'info', got %s", config.LogLevel)
	}
	if config.FigureLabel != "Figura" || config.TableLabel != "Tabla" {
		t.Errorf("Unexpected caption labels %q/%q", config.FigureLabel, config.TableLabel)
	}
	if config.CitationLCID != 12298 {
		t.Errorf("Expected default CitationLCID to be 12298, got %d", config.CitationLCID)
	}
	if config.StrictReferences {
		t.Error("Expected StrictReferences to be off by default")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(*Config) bool
	}{
		{
			name:    "log level",
			envVars: map[string]string{"MD2DOCX_LOG_LEVEL": "debug"},
			check:   func(c *Config) bool { return c.LogLevel == "debug" },
		},
		{
			name: "caption labels",
			envVars: map[string]string{
				"MD2DOCX_FIGURE_LABEL": "Figure",
				"MD2DOCX_TABLE_LABEL":  "Table",
			},
			check: func(c *Config) bool { return c.FigureLabel == "Figure" && c.TableLabel == "Table" },
		},
		{
			name:    "citation lcid",
			envVars: map[string]string{"MD2DOCX_CITATION_LCID": "1033"},
			check:   func(c *Config) bool { return c.CitationLCID == 1033 },
		},
		{
			name:    "invalid lcid ignored",
			envVars: map[string]string{"MD2DOCX_CITATION_LCID": "es-PE"},
			check:   func(c *Config) bool { return c.CitationLCID == 12298 },
		},
		{
			name:    "strict references",
			envVars: map[string]string{"MD2DOCX_STRICT_REFERENCES": "yes"},
			check:   func(c *Config) bool { return c.StrictReferences },
		},
		{
			name:    "references heading",
			envVars: map[string]string{"MD2DOCX_REFERENCES_HEADING": "Bibliografía"},
			check:   func(c *Config) bool { return c.ReferencesHeading == "Bibliografía" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			config := ConfigFromEnvironment()
			if !tt.check(config) {
				t.Errorf("Config check failed for %s: %+v", tt.name, config)
			}
		})
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	if config := NewConfigWithDefaults(nil); config.FigureLabel != "Figura" {
		t.Errorf("nil overrides should yield defaults, got %+v", config)
	}

	config := NewConfigWithDefaults(&Config{TableLabel: "Cuadro", StrictReferences: true})
	if config.TableLabel != "Cuadro" {
		t.Errorf("override lost: TableLabel = %q", config.TableLabel)
	}
	if config.FigureLabel != "Figura" || config.CaptionStyle != "Caption" || config.CitationLCID != 12298 {
		t.Errorf("unset fields not defaulted: %+v", config)
	}
	if !config.StrictReferences {
		t.Error("StrictReferences override lost")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "config.LogLevel"},
		{"same labels", func(c *Config) { c.TableLabel = c.FigureLabel }, "config.TableLabel"},
		{"empty caption style", func(c *Config) { c.CaptionStyle = "" }, "config.CaptionStyle"},
		{"negative lcid", func(c *Config) { c.CitationLCID = -1 }, "config.CitationLCID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			var ve *ValidationError
			if err := config.Validate(); !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(ve.Issues) != 1 || ve.Issues[0].Field != tt.field {
				t.Errorf("issues = %+v, want one for %s", ve.Issues, tt.field)
			}
		})
	}
}

func TestGlobalConfigIsCopied(t *testing.T) {
	config := GetGlobalConfig()
	config.FigureLabel = "cambiado"
	if GetGlobalConfig().FigureLabel == "cambiado" {
		t.Error("GetGlobalConfig returned the shared instance")
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "1", "YES", " on "} {
		if !parseBool(s) {
			t.Errorf("parseBool(%q) = false", s)
		}
	}
	for _, s := range []string{"false", "0", "no", ""} {
		if parseBool(s) {
			t.Errorf("parseBool(%q) = true", s)
		}
	}
}
