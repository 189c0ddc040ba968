// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Usage:
//   make build
//   ./bin/server -config-path=./config.yaml
//

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/switchvault/switchvault-core/config"
	"github.com/switchvault/switchvault-core/db"
	"github.com/switchvault/switchvault-core/pkg/log"
	"github.com/switchvault/switchvault-core/pkg/probe"
	"github.com/switchvault/switchvault-core/pkg/recovery"
	"github.com/switchvault/switchvault-core/pkg/tracer"
	"github.com/switchvault/switchvault-core/service"
)

var (
	_configPath  string
	_overlayPath string
	_crashlogDir string
)

func init() {
	flag.StringVar(&_configPath, "config-path", "", "Config path")
	flag.StringVar(&_overlayPath, "overlay-path", "", "Overlay config path, applied on top of the config")
	flag.StringVar(&_crashlogDir, "crashlog-dir", "/var/log", "Directory for crash artifacts")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"usage: server -config-path=[string]\n -overlay-path=[string]\n -crashlog-dir=[string]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
}

func main() {
	cfg, err := config.New([]string{_configPath, _overlayPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if err := initLogger(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(func(f string, args ...interface{}) {
		log.S().Infof(f, args...)
	})); err != nil {
		log.S().Warn(err.Error())
	}
	if err := recovery.SetCrashlogDir(_crashlogDir); err != nil {
		log.L().Fatal("Failed to set the crashlog directory.", zap.Error(err))
	}
	defer recovery.Recover()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stop
		cancel()
	}()

	tp, err := tracer.NewProvider(
		tracer.WithServiceName(cfg.Tracer.ServiceName),
		tracer.WithEndpoint(cfg.Tracer.EndPoint),
		tracer.WithInstanceID(cfg.Tracer.InstanceID),
		tracer.WithSamplingRatio(cfg.Tracer.SamplingRatio),
	)
	if err != nil {
		log.L().Error("Cannot config tracer provider.", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.L().Error("Failed to shutdown tracer provider.", zap.Error(err))
			}
		}()
	}

	kv, err := db.NewKVStore(cfg.DB)
	if err != nil {
		log.L().Fatal("Failed to open the state database.", zap.Error(err))
	}
	svc, err := service.New(cfg.Service, kv)
	if err != nil {
		log.L().Fatal("Failed to create the vault service.", zap.Error(err))
	}

	probeSvr := probe.New(cfg.ProbePort)
	if err := probeSvr.Start(ctx); err != nil {
		log.L().Fatal("Failed to start the probe server.", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		if err := probeSvr.Stop(shutdownCtx); err != nil {
			log.L().Error("Failed to stop the probe server.", zap.Error(err))
		}
	}()

	if err := svc.Start(ctx); err != nil {
		log.L().Fatal("Failed to start the vault service.", zap.Error(err))
	}
	probeSvr.Ready()
	log.L().Info("Vault service is up.", zap.String("authority", cfg.Service.Authority))

	<-ctx.Done()
	probeSvr.NotReady()
	if err := svc.Stop(context.Background()); err != nil {
		log.L().Error("Failed to stop the vault service.", zap.Error(err))
	}
}

func initLogger(cfg config.Config) error {
	if err := log.InitLoggers(cfg.Log, cfg.SubLogs, zap.AddStacktrace(zap.FatalLevel)); err != nil {
		return err
	}
	return nil
}
