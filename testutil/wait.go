// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package testutil

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
)

// CheckCondition defines a func type that checks whether a condition is met
type CheckCondition func() (bool, error)

// WaitUntil checks the condition every interval until the timeout elapses
func WaitUntil(interval, timeout time.Duration, f CheckCondition) error {
	op := func() error {
		met, err := f()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !met {
			return errors.New("condition is not met")
		}
		return nil
	}
	b := backoff.NewConstantBackOff(interval)
	return backoff.Retry(op, backoff.WithMaxRetries(b, uint64(timeout/interval)))
}
