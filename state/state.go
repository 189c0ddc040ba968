// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package state defines how state records serialize into the storage
// substrate, and the error taxonomy shared by everything reading or writing
// them.
package state

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

var (
	// ErrStateSerialization indicates the failure to serialize a state record
	ErrStateSerialization = errors.New("failed to serialize state")
	// ErrStateDeserialization indicates the failure to deserialize bytes into a state record
	ErrStateDeserialization = errors.New("failed to deserialize state")
	// ErrStateNotExist indicates the state does not exist
	ErrStateNotExist = errors.New("state does not exist")
	// ErrNotEnoughBalance indicates a subtraction larger than the balance
	ErrNotEnoughBalance = errors.New("not enough balance")
)

type (
	// Serializer has Serialize method to serialize struct to binary data
	Serializer interface {
		Serialize() ([]byte, error)
	}

	// Deserializer has Deserialize method to deserialize binary data to struct
	Deserializer interface {
		Deserialize(data []byte) error
	}
)

// Serialize check if input is Serializer, if it is, use the input's Serialize
// method, otherwise use gob
func Serialize(d interface{}) ([]byte, error) {
	if ss, ok := d.(Serializer); ok {
		return ss.Serialize()
	}
	var buf bytes.Buffer
	e := gob.NewEncoder(&buf)
	if err := e.Encode(d); err != nil {
		return nil, errors.Wrapf(ErrStateSerialization, "error when serializing %T state", d)
	}
	return buf.Bytes(), nil
}

// Deserialize check if input is Deserializer, if it is, use the input's
// Deserialize method, otherwise use gob
func Deserialize(x interface{}, data []byte) error {
	if ss, ok := x.(Deserializer); ok {
		return ss.Deserialize(data)
	}
	e := gob.NewDecoder(bytes.NewBuffer(data))
	if err := e.Decode(x); err != nil {
		return errors.Wrapf(ErrStateDeserialization, "error when deserializing %T state", x)
	}
	return nil
}
