// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package service hosts the vault, migration, and governance protocols
// behind a single-writer boundary. Every mutating operation runs alone in
// one working set: it fully commits and advances the operation height, or it
// fully discards.
package service

import (
	"context"
	"math/big"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/pkg/lifecycle"
	"github.com/switchvault/switchvault-core/pkg/log"
	"github.com/switchvault/switchvault-core/pkg/routine"
	"github.com/switchvault/switchvault-core/protocol"
	"github.com/switchvault/switchvault-core/protocol/governance"
	"github.com/switchvault/switchvault-core/protocol/migration"
	"github.com/switchvault/switchvault-core/protocol/vault"
	"github.com/switchvault/switchvault-core/statestore"
	"github.com/switchvault/switchvault-core/yieldsource"
)

var (
	// ErrReentrantCall indicates an operation arriving while another is
	// mid-flight; operations never queue
	ErrReentrantCall = errors.New("re-entrant operation rejected")
	// ErrServiceNotReady indicates the service has not been started
	ErrServiceNotReady = errors.New("service is not ready")
)

var _opsMtc = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "switchvault_service_ops",
		Help: "service operations",
	},
	[]string{"op", "status"},
)

func init() {
	prometheus.MustRegister(_opsMtc)
}

// Service is the single-writer host for the three protocols
type Service struct {
	lifecycle lifecycle.Lifecycle
	lifecycle.Readiness

	mu   sync.Mutex
	busy atomic.Bool

	cfg        Config
	clk        clock.Clock
	store      *statestore.StateStore
	registry   *protocol.Registry
	directory  *yieldsource.Directory
	vault      *vault.Protocol
	migration  *migration.Protocol
	governance *governance.Protocol
	authority  address.Address
}

// Option customizes the service
type Option func(*Service)

// WithClock sets the clock operations are stamped with, for testing
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clk = c
	}
}

// SourceAddress derives the stable address a named source registers under
func SourceAddress(name string) address.Address {
	return protocol.DeriveAddress("source:" + name)
}

// New builds the service: instruments from the source configs, the three
// protocols, and their wiring
func New(cfg Config, kv db.KVStore, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid service config")
	}
	authority, err := address.FromString(cfg.Authority)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid authority %s", cfg.Authority)
	}

	s := &Service{
		cfg:       cfg,
		clk:       clock.New(),
		store:     statestore.NewStateStore(kv),
		registry:  protocol.NewRegistry(),
		directory: yieldsource.NewDirectory(),
		authority: authority,
	}
	for _, opt := range opts {
		opt(s)
	}

	genesisSources := make([]migration.GenesisSource, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		addr := SourceAddress(sc.Name)
		src, err := buildSource(sc, s.clk)
		if err != nil {
			return nil, err
		}
		if err := s.directory.Register(addr, src); err != nil {
			return nil, err
		}
		genesisSources = append(genesisSources, migration.GenesisSource{Address: addr, Name: sc.Name})
	}

	minDeposit, _ := new(big.Int).SetString(cfg.MinDeposit, 10)
	s.vault = vault.NewProtocol(s.directory, vault.Genesis{
		Authority:     authority,
		MinDeposit:    minDeposit,
		InitialSource: SourceAddress(cfg.InitialSource),
	})
	s.migration = migration.NewProtocol(s.vault, s.directory, cfg.Migration, genesisSources)

	threshold, _ := new(big.Int).SetString(cfg.Governance.ProposalThreshold, 10)
	quorum, _ := new(big.Int).SetString(cfg.Governance.Quorum, 10)
	s.governance = governance.NewProtocol(governance.Params{
		VotingDelay:       cfg.Governance.VotingDelay,
		VotingPeriod:      cfg.Governance.VotingPeriod,
		ProposalThreshold: threshold,
		Quorum:            quorum,
		TimelockDelay:     cfg.Governance.TimelockDelay,
		ExecutionGrace:    cfg.Governance.ExecutionGrace,
	})

	// vault reports balance changes to governance; governance executes
	// approved migrations through the migration protocol
	s.vault.SetPowerRecorder(s.governance)
	s.governance.SetExecutor(s.migration)

	for _, p := range []protocol.Protocol{s.vault, s.migration, s.governance} {
		if err := s.registry.Register(p.Name(), p); err != nil {
			return nil, err
		}
	}

	s.lifecycle.Add(s.store)
	if cfg.HeightInterval > 0 {
		s.lifecycle.Add(routine.NewRecurringTask(s.advanceHeight, cfg.HeightInterval, routine.WithClock(s.clk)))
	}
	if cfg.PollInterval > 0 {
		s.lifecycle.Add(routine.NewRecurringTask(s.pollYield, cfg.PollInterval, routine.WithClock(s.clk)))
	}
	if cfg.KeeperInterval > 0 {
		s.lifecycle.Add(routine.NewRecurringTask(s.runKeeper, cfg.KeeperInterval, routine.WithClock(s.clk)))
	}
	return s, nil
}

func buildSource(sc SourceConfig, clk clock.Clock) (yieldsource.Source, error) {
	switch sc.Kind {
	case SourceKindFixedRate:
		opts := []yieldsource.FixedRateOption{yieldsource.WithClock(clk)}
		if sc.HaircutBps > 0 {
			opts = append(opts, yieldsource.WithHaircut(sc.HaircutBps))
		}
		return yieldsource.NewFixedRateSource(sc.RateBps, opts...), nil
	case SourceKindHTTP:
		return yieldsource.NewHTTPSource(sc.HTTP), nil
	default:
		return nil, errors.Errorf("unknown source kind %q", sc.Kind)
	}
}

// Start starts the store and the background tasks, bootstrapping the genesis
// records on a fresh state space
func (s *Service) Start(ctx context.Context) error {
	if err := s.lifecycle.OnStart(ctx); err != nil {
		return errors.Wrap(err, "failed to start service components")
	}
	height, err := s.store.Height()
	if err != nil {
		return err
	}
	if height == 0 {
		if err := s.createGenesisStates(ctx); err != nil {
			return errors.Wrap(err, "failed to bootstrap genesis states")
		}
		log.L().Info("Genesis states created.", zap.String("authority", s.cfg.Authority))
	}
	return s.TurnOn()
}

// Stop stops the background tasks and the store
func (s *Service) Stop(ctx context.Context) error {
	if err := s.TurnOff(); err != nil {
		return err
	}
	return s.lifecycle.OnStop(ctx)
}

func (s *Service) createGenesisStates(ctx context.Context) error {
	ws, err := s.store.NewWorkingSet()
	if err != nil {
		return err
	}
	height, err := ws.Height()
	if err != nil {
		return err
	}
	gctx := protocol.WithRegistry(ctx, s.registry)
	gctx = protocol.WithCallCtx(gctx, protocol.CallCtx{Caller: s.authority, Roles: []protocol.Role{protocol.RoleAdmin}})
	gctx = protocol.WithOpCtx(gctx, protocol.OpCtx{Height: height, Timestamp: s.clk.Now()})
	for _, p := range s.registry.All() {
		if err := p.CreateGenesisStates(gctx, ws); err != nil {
			return errors.Wrapf(err, "failed to create genesis states for %s", p.Name())
		}
	}
	return ws.Commit()
}

// execute runs one mutating operation alone in a fresh working set
func (s *Service) execute(op string, caller address.Address, fn func(context.Context, *statestore.WorkingSet) ([]*protocol.Log, error)) (*protocol.Receipt, error) {
	if s.busy.Load() {
		_opsMtc.WithLabelValues(op, "reentrant").Inc()
		return nil, errors.Wrapf(ErrReentrantCall, "op = %s", op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)
	if !s.IsReady() {
		return nil, ErrServiceNotReady
	}

	ws, err := s.store.NewWorkingSet()
	if err != nil {
		return nil, err
	}
	height, err := ws.Height()
	if err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer("service").Start(context.Background(), "service."+op,
		trace.WithAttributes(attribute.Int64("height", int64(height))))
	defer span.End()
	ctx = protocol.WithRegistry(ctx, s.registry)
	ctx = protocol.WithCallCtx(ctx, protocol.CallCtx{Caller: caller, Roles: s.rolesOf(caller)})
	ctx = protocol.WithOpCtx(ctx, protocol.OpCtx{Height: height, Timestamp: s.clk.Now()})

	logs, err := fn(ctx, ws)
	if err != nil {
		span.RecordError(err)
		_opsMtc.WithLabelValues(op, "failure").Inc()
		return nil, err
	}
	if err := ws.Commit(); err != nil {
		_opsMtc.WithLabelValues(op, "failure").Inc()
		return nil, err
	}
	_opsMtc.WithLabelValues(op, "success").Inc()
	receipt := &protocol.Receipt{Status: protocol.StatusSuccess, Height: height}
	receipt.AddLogs(logs...)
	return receipt, nil
}

// rolesOf assigns explicit capabilities; protocols never compare identities
func (s *Service) rolesOf(caller address.Address) []protocol.Role {
	if caller != nil && caller.String() == s.authority.String() {
		return []protocol.Role{protocol.RoleAdmin}
	}
	return nil
}

func (s *Service) readOnly() (*statestore.WorkingSet, error) {
	if !s.IsReady() {
		return nil, ErrServiceNotReady
	}
	return s.store.ReadOnly()
}

// Height returns the current committed operation height
func (s *Service) Height() (uint64, error) {
	if !s.IsReady() {
		return 0, ErrServiceNotReady
	}
	return s.store.Height()
}

// advanceHeight commits an empty working set so voting windows keep moving
// through quiet stretches
func (s *Service) advanceHeight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.IsReady() {
		return
	}
	ws, err := s.store.NewWorkingSet()
	if err != nil {
		log.L().Error("Failed to open a working set for the height tick.", zap.Error(err))
		return
	}
	if err := ws.Commit(); err != nil {
		log.L().Error("Failed to advance the operation height.", zap.Error(err))
	}
}
