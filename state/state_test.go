// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package state

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type gobState struct {
	Name  string
	Value *big.Int
}

type customState struct {
	payload []byte
}

func (c *customState) Serialize() ([]byte, error) { return c.payload, nil }

func (c *customState) Deserialize(data []byte) error {
	c.payload = make([]byte, len(data))
	copy(c.payload, data)
	return nil
}

func TestGobSerialization(t *testing.T) {
	require := require.New(t)

	s := gobState{Name: "total", Value: big.NewInt(10510)}
	data, err := Serialize(&s)
	require.NoError(err)

	var restored gobState
	require.NoError(Deserialize(&restored, data))
	require.Equal(s.Name, restored.Name)
	require.Zero(s.Value.Cmp(restored.Value))

	err = Deserialize(&restored, []byte("not gob"))
	require.Equal(ErrStateDeserialization, errors.Cause(err))
}

func TestCustomSerializer(t *testing.T) {
	require := require.New(t)

	c := customState{payload: []byte{1, 2, 3}}
	data, err := Serialize(&c)
	require.NoError(err)
	require.Equal(c.payload, data)

	var restored customState
	require.NoError(Deserialize(&restored, data))
	require.Equal(c.payload, restored.payload)
}
