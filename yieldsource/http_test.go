// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package yieldsource

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/switchvault/switchvault-core/test/identityset"
)

func newHTTPSource(t *testing.T, handler http.Handler) *HTTPSource {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultHTTPConfig
	cfg.BaseURL = srv.URL
	cfg.RatePerSecond = 1000
	return NewHTTPSource(cfg)
}

func TestHTTPSourceRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	balance := big.NewInt(0)
	mux := http.NewServeMux()
	mux.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		amount, _ := new(big.Int).SetString(gjson.GetBytes(body, "amount").String(), 10)
		balance.Add(balance, amount)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/withdraw", func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		amount, _ := new(big.Int).SetString(gjson.GetBytes(body, "amount").String(), 10)
		balance.Sub(balance, amount)
		fmt.Fprintf(w, `{"recovered":"%s"}`, amount.String())
	})
	mux.HandleFunc("/value", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"value":"%s"}`, balance.String())
	})
	mux.HandleFunc("/yield", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bps":730}`)
	})

	src := newHTTPSource(t, mux)
	require.NoError(src.Deposit(ctx, big.NewInt(5000)))

	v, err := src.ValueOf(ctx, identityset.Address(0))
	require.NoError(err)
	require.Zero(big.NewInt(5000).Cmp(v))

	recovered, err := src.Withdraw(ctx, big.NewInt(2000))
	require.NoError(err)
	require.Zero(big.NewInt(2000).Cmp(recovered))

	bps, err := src.CurrentYield(ctx)
	require.NoError(err)
	require.Equal(uint64(730), bps)
}

func TestHTTPSourceRetriesReads(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/yield", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"bps":100}`)
	})

	src := newHTTPSource(t, mux)
	bps, err := src.CurrentYield(ctx)
	require.NoError(err)
	require.Equal(uint64(100), bps)
	require.Equal(3, attempts)
}

func TestHTTPSourceExhaustion(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/value", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	src := newHTTPSource(t, mux)
	_, err := src.ValueOf(ctx, identityset.Address(0))
	require.Equal(ErrSourceUnavailable, errors.Cause(err))
}

func TestHTTPSourceBadResponse(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/withdraw", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected":true}`)
	})
	mux.HandleFunc("/yield", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bps":"abc"}`)
	})

	src := newHTTPSource(t, mux)
	_, err := src.Withdraw(ctx, big.NewInt(1))
	require.Equal(ErrBadResponse, errors.Cause(err))
}

func TestDirectory(t *testing.T) {
	require := require.New(t)

	dir := NewDirectory()
	addr := identityset.Address(1)
	src := NewFixedRateSource(100)
	require.NoError(dir.Register(addr, src))
	require.Equal(ErrDuplicateSource, errors.Cause(dir.Register(addr, src)))

	got, err := dir.Resolve(addr)
	require.NoError(err)
	require.Equal(Source(src), got)

	_, err = dir.Resolve(identityset.Address(2))
	require.Equal(ErrUnknownSource, errors.Cause(err))
}
