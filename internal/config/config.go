package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "plurianual.yml"

var exportFormats = []string{"text", "csv", "html", "markdown"}

// Config models plurianual.yml.
type Config struct {
	Catalog struct {
		Secretarias []string `yaml:"secretarias"`
		Categorias  []string `yaml:"categorias"`
		Fontes      []string `yaml:"fontes"`
	} `yaml:"catalog"`
	Export struct {
		DefaultFormat string `yaml:"default_format"`
	} `yaml:"export"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with ppa config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	lists := []struct {
		name  string
		items []string
	}{
		{"catalog.secretarias", c.Catalog.Secretarias},
		{"catalog.categorias", c.Catalog.Categorias},
		{"catalog.fontes", c.Catalog.Fontes},
	}
	for _, l := range lists {
		seen := map[string]bool{}
		for _, item := range l.items {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("config.%s contains an empty entry", l.name)
			}
			if seen[item] {
				return fmt.Errorf("config.%s lists %q twice", l.name, item)
			}
			seen[item] = true
		}
	}
	if f := c.Export.DefaultFormat; f != "" {
		known := false
		for _, e := range exportFormats {
			if f == e {
				known = true
			}
		}
		if !known {
			return fmt.Errorf("config.export.default_format must be one of %s", strings.Join(exportFormats, ", "))
		}
	}
	return nil
}

// AllowsSecretaria reports whether s is in the catalog. An empty catalog or an
// empty value accepts anything.
func (c *Config) AllowsSecretaria(s string) bool { return allows(c.Catalog.Secretarias, s) }

func (c *Config) AllowsCategoria(s string) bool { return allows(c.Catalog.Categorias, s) }

func (c *Config) AllowsFonte(s string) bool { return allows(c.Catalog.Fontes, s) }

func allows(catalog []string, v string) bool {
	if len(catalog) == 0 || v == "" {
		return true
	}
	for _, c := range catalog {
		if c == v {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the seeded catalogs.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Write stores cfg as the workspace config file.
func Write(workspace string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workspace), data, 0o644)
}

const defaultTemplate = `catalog:
  secretarias:
    - Administração
    - Assistência Social
    - Cultura
    - Educação
    - Esporte e Lazer
    - Fazenda
    - Meio Ambiente
    - Obras e Infraestrutura
    - Saúde
    - Segurança Pública
  categorias:
    - Infraestrutura
    - Serviços
    - Capacitação
    - Aquisição
    - Manutenção
  fontes:
    - Recursos Próprios
    - Transferência Estadual
    - Transferência Federal
    - Operação de Crédito
    - Emenda Parlamentar

export:
  default_format: html
`
