package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	RendererConfig struct {
		MaxDepth int `yaml:"max_depth" validate:"min=1,max=1024"`
	}

	ComponentConfig struct {
		Tag      string `yaml:"tag" validate:"required,lowercase"`
		Template string `yaml:"template" validate:"required"`
	}

	TemplatesConfig struct {
		Paths      []string          `yaml:"paths" validate:"dive,required,dir"`
		Components []ComponentConfig `yaml:"components" validate:"unique=Tag,dive"`
	}

	ServerConfig struct {
		Listen  string `yaml:"listen" validate:"required,hostname_port"`
		Root    string `yaml:"root" sanitize:"path_clean" validate:"required"`
		Metrics bool   `yaml:"metrics"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Renderer  RendererConfig  `yaml:"renderer"`
		Templates TemplatesConfig `yaml:"templates"`
		Server    ServerConfig    `yaml:"server"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

// NOTE: must match yaml field name above, template bodies use the same
// delimiters as configuration expansion.
const TemplateBodyFieldName = "template"

var requiredOptions = []func(*gencfg.ProcessingOptions){
	gencfg.WithDoNotExpandField(TemplateBodyFieldName),
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are allowed, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration expands embedded configuration template to get defaults,
// overlays them with values from the file at path (when given) and validates
// the result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare returns expanded default configuration.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump returns active configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
