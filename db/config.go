// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

// supported storage engines
const (
	EngineBolt   = "bolt"
	EnginePebble = "pebble"
	EngineMemory = "memory"
)

// Config is the config for database
type Config struct {
	// Engine selects the storage engine, bolt by default
	Engine string `yaml:"engine"`
	DbPath string `yaml:"dbPath"`
	// NumRetries is the number of retries on a failed write
	NumRetries uint8 `yaml:"numRetries"`
	// ReadOnly opens the db in read only mode
	ReadOnly bool `yaml:"readOnly"`
}

// DefaultConfig returns the default config
var DefaultConfig = Config{
	Engine:     EngineBolt,
	DbPath:     "/var/data/vault.db",
	NumRetries: 3,
}
