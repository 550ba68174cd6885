package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once
	exportOnce  sync.Once
	exportErr   error
)

// Validator is implemented by config structs that check themselves after loading.
type Validator interface {
	Validate() error
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads the env file once per process and then decodes T from the environment.
func New[T any](prefix string) (*T, error) {
	exportOnce.Do(func() {
		exportErr = loadEnvFile()
	})
	if exportErr != nil {
		return nil, exportErr
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process env prefix=%q: %w", prefix, err)
	}

	if v, ok := any(&conf).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validate env prefix=%q: %w", prefix, err)
		}
	}

	return &conf, nil
}

func loadEnvFile() error {
	filepath := resolveEnvPath()
	if filepath != "" {
		if err := exportEnvironment(filepath); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	if err := exportEnvironmentIfExists(".env"); err != nil {
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	return nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment never overrides variables already set in the process env.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
