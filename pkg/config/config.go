package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

var (
	envMu      sync.Mutex
	envFile    string
	envLoaded  bool
	envLoadErr error
)

// Validator is implemented by config structs that need checks beyond
// envconfig's required/default tags.
type Validator interface {
	Validate() error
}

// SetEnvFile points the loader at an explicit dotenv file. It must be called
// before the first New; later calls reset the cached load.
func SetEnvFile(path string) {
	envMu.Lock()
	defer envMu.Unlock()

	envFile = strings.TrimSpace(path)
	envLoaded = false
	envLoadErr = nil
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New exports the dotenv file (once per process) and decodes the environment
// under prefix into T.
func New[T any](prefix string) (*T, error) {
	if err := loadEnvOnce(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process env prefix=%q: %w", prefix, err)
	}

	if v, ok := any(&conf).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	return &conf, nil
}

func loadEnvOnce() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envLoaded {
		return envLoadErr
	}
	envLoaded = true

	if envFile != "" {
		if err := exportEnvironment(envFile); err != nil {
			envLoadErr = fmt.Errorf("failed to load env file: %w", err)
		}
		return envLoadErr
	}

	if err := exportEnvironmentIfExists(defaultEnvFile); err != nil {
		envLoadErr = fmt.Errorf("failed to load default env file: %w", err)
	}
	return envLoadErr
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

// exportEnvironment copies every key of the dotenv file into the process
// environment. Variables already set in the environment win.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
