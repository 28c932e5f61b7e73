package kvrel

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-yaml/yaml"
)

// Config declares the models known to an ORM:
//
//	models:
//	  User:
//	    table: users
//	    fields: [name]
//	    associations:
//	      - {name: posts, type: hasMany, model: Post, foreignKey: author}
type Config struct {
	Models map[string]*Model `yaml:"models"`
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("kvrel: parsing models: %w", err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kvrel: %w", err)
	}
	defer file.Close()

	var cfg Config
	err = yaml.NewDecoder(file).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kvrel: parsing %s: %w", path, err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// init names the models after their config keys and validates them.
func (cfg *Config) init() error {
	for _, name := range cfg.ModelNames() {
		m := cfg.Models[name]
		if m == nil {
			return fmt.Errorf("kvrel: model %s is empty", name)
		}
		if m.Name == "" {
			m.Name = name
		}
		if err := m.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Config) ModelNames() []string {
	names := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add registers a model under m.Name.
func (cfg *Config) Add(m *Model) *Model {
	if cfg.Models == nil {
		cfg.Models = make(map[string]*Model)
	}
	if m.Name == "" {
		panic("kvrel: Config.Add: model has no name")
	}
	if cfg.Models[m.Name] != nil {
		panic(fmt.Errorf("kvrel: Config.Add: duplicate model %s", m.Name))
	}
	cfg.Models[m.Name] = m
	return m
}
