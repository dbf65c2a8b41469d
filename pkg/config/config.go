// Package config loads YAML configuration files with environment variable
// expansion and optional validation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that can check themselves
// after loading.
type Validator interface {
	Validate() error
}

// Load reads the YAML file at path into a new T. Values like ${HOME} are
// expanded from the environment before parsing. If T implements Validator,
// the loaded value is validated.
func Load[T any](path string) (*T, error) {
	cfg := new(T)
	if err := loadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but starts from defaults, so the file only
// has to mention values that differ. A missing file is not an error.
func LoadWithDefaults[T any](path string, defaults *T) (*T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if v, ok := any(defaults).(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, fmt.Errorf("config: validate defaults: %w", err)
			}
		}
		return defaults, nil
	}
	if err := loadInto(path, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

func loadInto[T any](path string, cfg *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if v, ok := any(cfg).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validate %s: %w", path, err)
		}
	}
	return nil
}
