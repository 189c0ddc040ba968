// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package httputil

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"
)

const _connectionCount = 400

type (
	// ServerOption is a server option
	ServerOption func(*serverConfig)

	serverConfig struct {
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration
		ReadHeaderTimeout time.Duration
	}
)

// DefaultServerConfig is the default server config
var DefaultServerConfig = serverConfig{
	ReadTimeout:       35 * time.Second,
	WriteTimeout:      35 * time.Second,
	IdleTimeout:       120 * time.Second,
	ReadHeaderTimeout: 5 * time.Second,
}

// ReadHeaderTimeout sets the amount of time allowed to read request headers
func ReadHeaderTimeout(h time.Duration) ServerOption {
	return func(cfg *serverConfig) {
		cfg.ReadHeaderTimeout = h
	}
}

// NewServer creates a HTTP server with time out settings.
func NewServer(addr string, handler http.Handler, opts ...ServerOption) http.Server {
	cfg := DefaultServerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return http.Server{
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		Addr:              addr,
		Handler:           handler,
	}
}

// Server creates a HTTP server with default settings
func Server(addr string, handler http.Handler) http.Server {
	return NewServer(addr, handler)
}

// LimitListener returns a listener that limits the concurrent connection count
func LimitListener(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return netutil.LimitListener(ln, _connectionCount), nil
}
