// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package config

import (
	"os"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/test/identityset"
	"github.com/switchvault/switchvault-core/testutil"
)

func TestNewDefaultConfig(t *testing.T) {
	r := require.New(t)
	// the defaults carry no authority, so validation must reject them
	_, err := New([]string{})
	r.Error(err)

	cfg, err := New([]string{}, DoNotValidate)
	r.NoError(err)
	r.Equal(db.EngineBolt, cfg.DB.Engine)
	r.Equal(7788, cfg.ProbePort)
	r.Equal("simulated", cfg.Service.InitialSource)
}

func TestNewConfigWithOverlay(t *testing.T) {
	r := require.New(t)
	path, err := testutil.PathOfTempFile("cfg")
	r.NoError(err)
	defer testutil.CleanupPath(path)

	overlay := `
operator:
  address: ` + identityset.Address(0).String() + `
db:
  engine: memory
service:
  minDeposit: "250"
`
	r.NoError(os.WriteFile(path, []byte(overlay), 0600))

	cfg, err := New([]string{path})
	r.NoError(err)
	r.Equal(identityset.Address(0).String(), cfg.Service.Authority)
	r.Equal(db.EngineMemory, cfg.DB.Engine)
	r.Equal("250", cfg.Service.MinDeposit)
	// untouched sections keep their defaults
	r.Equal("simulated", cfg.Service.InitialSource)
}

func TestNewConfigWithEnvExpansion(t *testing.T) {
	r := require.New(t)
	path, err := testutil.PathOfTempFile("cfg")
	r.NoError(err)
	defer testutil.CleanupPath(path)

	t.Setenv("SWITCHVAULT_AUTHORITY", identityset.Address(3).String())
	overlay := `
operator:
  address: ${SWITCHVAULT_AUTHORITY}
`
	r.NoError(os.WriteFile(path, []byte(overlay), 0600))

	cfg, err := New([]string{path})
	r.NoError(err)
	r.Equal(identityset.Address(3).String(), cfg.Service.Authority)
}

func TestValidateDB(t *testing.T) {
	r := require.New(t)
	cfg := Default
	cfg.DB.Engine = "leveldb"
	r.Error(ValidateDB(cfg))
	cfg.DB.Engine = db.EnginePebble
	r.NoError(ValidateDB(cfg))
}

type stubSecretReader struct {
	secret *api.Secret
	err    error
}

func (s *stubSecretReader) Read(path string) (*api.Secret, error) {
	return s.secret, s.err
}

func TestVaultOperatorLoader(t *testing.T) {
	cfg := &hashiCorpVault{Path: "secret/operator", Key: "address"}
	addr := identityset.Address(0).String()

	for _, tt := range []struct {
		name   string
		reader vaultSecretReader
		want   string
		errMsg string
	}{
		{
			"ok",
			&stubSecretReader{secret: &api.Secret{Data: map[string]interface{}{"address": addr}}},
			addr,
			"",
		},
		{
			"read error",
			&stubSecretReader{err: errors.New("connection refused")},
			"",
			"failed to read vault secret",
		},
		{
			"no secret",
			&stubSecretReader{},
			"",
			"secret does not exist",
		},
		{
			"missing key",
			&stubSecretReader{secret: &api.Secret{Data: map[string]interface{}{}}},
			"",
			"secret value does not exist",
		},
		{
			"wrong type",
			&stubSecretReader{secret: &api.Secret{Data: map[string]interface{}{"address": 42}}},
			"",
			"invalid secret value type",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			loader := &vaultOperatorLoader{cfg: cfg, vaultClient: &vaultClient{cli: tt.reader}}
			got, err := loader.load()
			if tt.errMsg != "" {
				require.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
