// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package yieldsource

import (
	"context"
	"math/big"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-resty/resty/v2"
	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrSourceUnavailable indicates the remote instrument could not be
	// reached after exhausting all retries
	ErrSourceUnavailable = errors.New("yield source unavailable")
	// ErrBadResponse indicates a response missing the expected field
	ErrBadResponse = errors.New("malformed yield source response")
)

// HTTPConfig is the config of an HTTP-fronted instrument
type HTTPConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries bounds the retry loop on idempotent reads
	MaxRetries uint64 `yaml:"maxRetries"`
	// RatePerSecond throttles outgoing calls client-side
	RatePerSecond float64 `yaml:"ratePerSecond"`
}

// DefaultHTTPConfig is the default HTTP source config
var DefaultHTTPConfig = HTTPConfig{
	Timeout:       10 * time.Second,
	MaxRetries:    3,
	RatePerSecond: 10,
}

// HTTPSource adapts a REST-fronted yield instrument to the Source
// interface. Individual attempt failures on idempotent reads are retried
// with exponential backoff; only total exhaustion is reported. Writes are
// not retried because they are not idempotent.
type HTTPSource struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     HTTPConfig
}

// NewHTTPSource creates an HTTP source on the given endpoint
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &HTTPSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		cfg:     cfg,
	}
}

// Deposit places amount into the instrument
func (s *HTTPSource) Deposit(ctx context.Context, amount *big.Int) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"amount": amount.String()}).
		Post("/deposit")
	if err != nil {
		return errors.Wrap(ErrSourceUnavailable, err.Error())
	}
	if resp.IsError() {
		return errors.Wrapf(ErrSourceUnavailable, "deposit returned status %d", resp.StatusCode())
	}
	return nil
}

// Withdraw takes amount out and returns the actually-recovered amount
func (s *HTTPSource) Withdraw(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"amount": amount.String()}).
		Post("/withdraw")
	if err != nil {
		return nil, errors.Wrap(ErrSourceUnavailable, err.Error())
	}
	if resp.IsError() {
		return nil, errors.Wrapf(ErrSourceUnavailable, "withdraw returned status %d", resp.StatusCode())
	}
	return parseAmount(resp.Body(), "recovered")
}

// ValueOf reports the holder's current value, retrying transient failures
func (s *HTTPSource) ValueOf(ctx context.Context, holder address.Address) (*big.Int, error) {
	body, err := s.getWithRetry(ctx, "/value", map[string]string{"holder": holder.String()})
	if err != nil {
		return nil, err
	}
	return parseAmount(body, "value")
}

// CurrentYield reports the instrument's rate, retrying transient failures
func (s *HTTPSource) CurrentYield(ctx context.Context) (uint64, error) {
	body, err := s.getWithRetry(ctx, "/yield", nil)
	if err != nil {
		return 0, err
	}
	bps := gjson.GetBytes(body, "bps")
	if !bps.Exists() {
		return 0, errors.Wrap(ErrBadResponse, "missing field bps")
	}
	return bps.Uint(), nil
}

func (s *HTTPSource) getWithRetry(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	var body []byte
	op := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return errors.Errorf("status %d", resp.StatusCode())
		}
		body = resp.Body()
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.MaxRetries)); err != nil {
		return nil, errors.Wrap(ErrSourceUnavailable, err.Error())
	}
	return body, nil
}

func parseAmount(body []byte, field string) (*big.Int, error) {
	v := gjson.GetBytes(body, field)
	if !v.Exists() {
		return nil, errors.Wrapf(ErrBadResponse, "missing field %s", field)
	}
	amount, ok := new(big.Int).SetString(v.String(), 10)
	if !ok {
		return nil, errors.Wrapf(ErrBadResponse, "field %s = %s is not an integer", field, v.String())
	}
	return amount, nil
}
