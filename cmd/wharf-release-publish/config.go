package main

import (
	"errors"
	"os"

	"github.com/iver-wharf/wharf-core/v2/pkg/config"
	"github.com/iver-wharf/wharf-release-publish/pkg/releaseclient"
	"github.com/iver-wharf/wharf-release-publish/pkg/runclient"
)

// Config holds all configurable settings for wharf-release-publish.
//
// The config is read in the following order:
//
// 1. File: ~/.config/iver-wharf/wharf-release-publish/wharf-release-publish-config.yml
//
// 2. File: ./wharf-release-publish-config.yml
//
// 3. File from environment variable: WHARF_RELEASE_CONFIG
//
// 4. Environment variables, prefixed with WHARF_RELEASE
//
// Each inner struct is represented as a deeper field in the different
// configurations. For YAML they represent deeper nested maps. For environment
// variables they are joined together by underscores.
//
// All environment variables must be uppercased, while YAML files are
// case-insensitive. Keeping camelCasing in YAML config files is recommended
// for consistency.
type Config struct {
	Runs    runclient.Config
	Release releaseclient.Config
}

var rootConfig Config

// DefaultConfig is the hard-coded default values for wharf-release-publish's
// configs.
var DefaultConfig = Config{
	Runs: runclient.Config{
		APIURL:   "http://wharf-run-api:8080",
		Workflow: "build",
	},
	Release: releaseclient.Config{
		APIURL: "http://wharf-release-api:8080",
	},
}

func loadConfig() (Config, error) {
	cfgBuilder := config.NewBuilder(DefaultConfig)

	cfgBuilder.AddConfigYAMLFile("~/.config/iver-wharf/wharf-release-publish/wharf-release-publish-config.yml")
	cfgBuilder.AddConfigYAMLFile("wharf-release-publish-config.yml")
	if cfgFile, ok := os.LookupEnv("WHARF_RELEASE_CONFIG"); ok {
		cfgBuilder.AddConfigYAMLFile(cfgFile)
	}
	cfgBuilder.AddEnvironmentVariables("WHARF_RELEASE")

	var cfg Config
	if err := cfgBuilder.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.Runs.Workflow == "" {
		return errors.New("runs.workflow cannot be empty")
	}
	return nil
}
