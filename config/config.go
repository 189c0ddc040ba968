// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package config assembles the daemon configuration from defaults,
// environment expansion, and YAML overlay files.
package config

import (
	"os"

	"github.com/pkg/errors"
	uconfig "go.uber.org/config"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/pkg/log"
	"github.com/switchvault/switchvault-core/pkg/tracer"
	"github.com/switchvault/switchvault-core/service"
)

// Config is the top-level daemon configuration
type Config struct {
	Service   service.Config              `yaml:"service"`
	DB        db.Config                   `yaml:"db"`
	Log       log.GlobalConfig            `yaml:"log"`
	SubLogs   map[string]log.GlobalConfig `yaml:"subLogs"`
	ProbePort int                         `yaml:"probePort"`
	Tracer    tracer.Config               `yaml:"tracer"`
	Operator  Operator                    `yaml:"operator"`
}

// Operator names the admin address, either inline or read from a HashiCorp
// Vault secret
type Operator struct {
	// Method is how the address is obtained, either "config" or "vault"
	Method string `yaml:"method"`
	// Address is the inline admin address, for the config method
	Address string `yaml:"address"`
	// Vault locates the secret holding the address, for the vault method
	Vault hashiCorpVault `yaml:"vault"`
}

// operator address methods
const (
	OperatorMethodConfig = "config"
	OperatorMethodVault  = "vault"
)

// Default is the default config
var Default = Config{
	Service:   service.DefaultConfig,
	DB:        db.DefaultConfig,
	ProbePort: 7788,
	Operator:  Operator{Method: OperatorMethodConfig},
}

// Validate is the interface of validating the config
type Validate func(Config) error

// Validates is the collection of config validation functions
var Validates = []Validate{
	ValidateService,
	ValidateDB,
}

// ValidateService checks the service section
func ValidateService(cfg Config) error {
	return errors.Wrap(cfg.Service.Validate(), "invalid service config")
}

// ValidateDB checks the storage engine selection
func ValidateDB(cfg Config) error {
	switch cfg.DB.Engine {
	case db.EngineBolt, db.EnginePebble, db.EngineMemory:
		return nil
	default:
		return errors.Errorf("unknown storage engine %q", cfg.DB.Engine)
	}
}

// New creates a config by overlaying the given files on the defaults, with
// ${ENV} references expanded. By default the config is validated; pass
// DoNotValidate to skip.
func New(configPaths []string, validates ...Validate) (Config, error) {
	opts := []uconfig.YAMLOption{
		uconfig.Static(Default),
		uconfig.Expand(os.LookupEnv),
	}
	for _, path := range configPaths {
		if path != "" {
			opts = append(opts, uconfig.File(path))
		}
	}
	yaml, err := uconfig.NewYAML(opts...)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to init config")
	}

	var cfg Config
	if err := yaml.Get(uconfig.Root).Populate(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal YAML config to struct")
	}
	if err := cfg.resolveOperator(); err != nil {
		return Config{}, err
	}

	if len(validates) == 0 {
		validates = Validates
	}
	for _, validate := range validates {
		if validate == nil {
			continue
		}
		if err := validate(cfg); err != nil {
			return Config{}, errors.Wrap(err, "failed to validate config")
		}
	}
	return cfg, nil
}

// DoNotValidate validates the given config
func DoNotValidate(cfg Config) error { return nil }

// resolveOperator fills Service.Authority from the configured operator
// source
func (cfg *Config) resolveOperator() error {
	switch cfg.Operator.Method {
	case "", OperatorMethodConfig:
		if cfg.Operator.Address != "" {
			cfg.Service.Authority = cfg.Operator.Address
		}
		return nil
	case OperatorMethodVault:
		loader, err := newVaultOperatorLoader(&cfg.Operator.Vault)
		if err != nil {
			return err
		}
		addr, err := loader.load()
		if err != nil {
			return errors.Wrap(err, "failed to load the operator address")
		}
		cfg.Service.Authority = addr
		return nil
	default:
		return errors.Errorf("invalid operator method %q", cfg.Operator.Method)
	}
}
