// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package protocol

import (
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/iotexproject/iotex-address/address"
)

// receipt status
const (
	// StatusFailure is the status of a failed operation
	StatusFailure uint64 = iota
	// StatusSuccess is the status of a successful operation
	StatusSuccess
)

type (
	// Receipt represents the result of one executed operation
	Receipt struct {
		Status uint64
		Height uint64
		Logs   []*Log
	}

	// Log is a typed event emitted by a protocol during an operation.
	// Topics[0] is the hash of the event name, the remaining topics are
	// the indexed fields.
	Log struct {
		Address string
		Topics  []hash.Hash256
		Data    []byte
	}

	// ReceiptLog accumulates an event's fields before building the Log
	ReceiptLog struct {
		addr   string
		topics []hash.Hash256
		data   []byte
	}
)

// AddLogs appends non-nil logs to the receipt
func (r *Receipt) AddLogs(logs ...*Log) *Receipt {
	for _, l := range logs {
		if l != nil {
			r.Logs = append(r.Logs, l)
		}
	}
	return r
}

// NewReceiptLog creates a receipt log with the event name as first topic
func NewReceiptLog(addr, eventName string) *ReceiptLog {
	return &ReceiptLog{
		addr:   addr,
		topics: []hash.Hash256{hash.Hash256b([]byte(eventName))},
	}
}

// AddTopics appends indexed fields, each hashed into one topic
func (r *ReceiptLog) AddTopics(topics ...[]byte) {
	for _, t := range topics {
		r.topics = append(r.topics, hash.Hash256b(t))
	}
}

// AddAddress appends an address as an indexed field
func (r *ReceiptLog) AddAddress(addr address.Address) {
	if addr != nil {
		r.topics = append(r.topics, hash.Hash256b(addr.Bytes()))
	}
}

// SetData sets the event payload
func (r *ReceiptLog) SetData(data []byte) {
	r.data = data
}

// Build creates the log
func (r *ReceiptLog) Build() *Log {
	return &Log{
		Address: r.addr,
		Topics:  r.topics,
		Data:    r.data,
	}
}
