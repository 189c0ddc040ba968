// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package recovery turns an unhandled panic into a crash log and a heap
// profile before the process dies.
package recovery

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/switchvault/switchvault-core/pkg/log"
)

// _crashlogDir is where crash artifacts land when no directory is configured
var _crashlogDir = os.TempDir()

// SetCrashlogDir sets the crash artifact directory, creating it if needed
func SetCrashlogDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0744); err != nil {
		return err
	}
	_crashlogDir = dir
	return nil
}

// Recover catches a panic, writes the crash log, and re-raises. Use with
// defer at the top of main and long-lived goroutines.
func Recover() {
	if r := recover(); r != nil {
		CrashLog(r, _crashlogDir)
		panic(r)
	}
}

// CrashLog records the panic value, the runtime state, and a heap profile
// under the given directory
func CrashLog(r interface{}, dir string) {
	log.S().Errorf("crashlog: %v", r)
	printInfo("runtime", runtimeInfo)
	writeHeapProfile(filepath.Join(dir, "heapdump_"+strconv.FormatInt(time.Now().Unix(), 10)+".out"))
}

func runtimeInfo() (interface{}, error) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return map[string]interface{}{
		"goVersion":    runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"numCPU":       runtime.NumCPU(),
		"numGoroutine": runtime.NumGoroutine(),
		"heapAlloc":    stats.HeapAlloc,
		"heapSys":      stats.HeapSys,
		"numGC":        stats.NumGC,
	}, nil
}

// printInfo logs one named section of crash context, swallowing collection
// failures so the crash log itself never panics
func printInfo(name string, collect func() (interface{}, error)) {
	info, err := collect()
	if err != nil {
		log.S().Errorf("crashlog: get %s info error: %v", name, err)
		return
	}
	log.S().Errorw("crashlog", zap.String("section", name), zap.Any("info", info))
}

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		log.S().Errorf("crashlog: create heap profile %s error: %v", path, err)
		return
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.S().Errorf("crashlog: write heap profile error: %v", err)
	}
}
