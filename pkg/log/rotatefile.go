// Copyright (c) 2025 SwitchVault
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package log

import (
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	currentTime             = time.Now
	defaultBackupTimeFormat = "20060102"
)

// RotateFile is an io.WriteCloser that writes to a log file and rotates it
// once per backup-time-format period, pruning old backups in the background.
type RotateFile struct {
	// Filename is the file to write logs to. Backup log files are retained in the same directory.
	// It uses <processname>.log in os.TempDir() if empty.
	Filename string `json:"filename" yaml:"filename"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// BackupTimeFormat determines the time format used in backup file names.
	BackupTimeFormat string `json:"backupTimeFormat" yaml:"backupTimeFormat"`

	// LocalTime determines if the time used for formatting the timestamps in
	// backup files is the computer's local time. The default is UTC.
	LocalTime bool `json:"localtime" yaml:"localtime"`

	file              *os.File
	currentBackupName string
	mu                sync.Mutex
	workerOnce        sync.Once
	workerCh          chan struct{}
}

// Write writes data to the current file, rotating first when a new period started.
func (f *RotateFile) Write(d []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rotate, err := f.reopenIfNeeded()
	if err != nil {
		return 0, err
	}
	if rotate {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}

	return f.file.Write(d)
}

// Close implements io.Closer, and closes the current logfile.
func (f *RotateFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.close()
}

// Rotate closes the existing log file and creates a new one.
func (f *RotateFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotate()
}

func (f *RotateFile) filename() string {
	if f.Filename != "" {
		return f.Filename
	}
	name := filepath.Base(os.Args[0]) + ".log"
	return filepath.Join(os.TempDir(), name)
}

func (f *RotateFile) dir() string {
	return filepath.Dir(f.filename())
}

func (f *RotateFile) backupTimeFormat() string {
	if f.BackupTimeFormat != "" {
		return f.BackupTimeFormat
	}
	return defaultBackupTimeFormat
}

func (f *RotateFile) open() error {
	var err error
	t := currentTime()
	if !f.LocalTime {
		t = t.UTC()
	}
	f.currentBackupName = t.Format(f.backupTimeFormat())

	f.file, err = os.OpenFile(f.filename(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	return err
}

func (f *RotateFile) close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// reopenIfNeeded reports whether a new backup period started since the last write.
func (f *RotateFile) reopenIfNeeded() (bool, error) {
	if f.file == nil {
		return false, f.open()
	}
	t := currentTime()
	if !f.LocalTime {
		t = t.UTC()
	}
	if f.currentBackupName == t.Format(f.backupTimeFormat()) {
		return false, nil
	}
	return true, nil
}

func (f *RotateFile) rotate() error {
	if err := f.close(); err != nil {
		return err
	}
	if err := f.openNew(); err != nil {
		return err
	}
	f.workerOnce.Do(func() {
		f.workerCh = make(chan struct{}, 1)
		go func() {
			for range f.workerCh {
				f.pruneBackups()
			}
		}()
	})
	select {
	case f.workerCh <- struct{}{}:
	default:
	}
	return nil
}

func (f *RotateFile) pruneBackups() {
	if f.MaxBackups == 0 {
		return
	}
	files, err := f.oldLogFiles()
	if err != nil {
		stdlog.Println(err)
		return
	}
	if f.MaxBackups > 0 && f.MaxBackups < len(files) {
		for _, fi := range files[0 : len(files)-f.MaxBackups] {
			os.Remove(filepath.Join(f.dir(), fi.entry.Name()))
		}
	}
}

func (f *RotateFile) oldLogFiles() ([]logInfo, error) {
	files, err := os.ReadDir(f.dir())
	if err != nil {
		return nil, fmt.Errorf("can't read log file directory: %s", err)
	}
	logFiles := []logInfo{}

	filename := filepath.Base(f.filename())
	ext := filepath.Ext(filename)
	prefix := filename[:len(filename)-len(ext)] + "-"

	for _, fi := range files {
		if fi.IsDir() {
			continue
		}
		name := fi.Name()
		if strings.HasPrefix(name, prefix) {
			ext := filepath.Ext(name)
			// ext carries the unix timestamp of the logfile
			if len(ext) > 10 {
				timestamp, err := strconv.ParseInt(ext[1:], 10, 64)
				if err == nil {
					logFiles = append(logFiles, logInfo{timestamp, fi})
				}
			}
		}
	}

	sort.Sort(byFormatTime(logFiles))
	return logFiles, nil
}

// openNew opens a new log file for writing, moving any old log file out of the
// way. This method assumes the file has already been closed.
func (f *RotateFile) openNew() error {
	err := os.MkdirAll(f.dir(), 0755)
	if err != nil {
		return fmt.Errorf("can't make directories for new logfile: %s", err)
	}

	name := f.filename()
	fi, err := os.Stat(name)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		// move the existing file
		newname := f.backupName()
		if err := os.Rename(name, newname); err != nil {
			return fmt.Errorf("can't rename log file: %s", err)
		}
	}
	return f.open()
}

func (f *RotateFile) backupName() string {
	dir := filepath.Dir(f.filename())
	filename := filepath.Base(f.filename())
	ext := filepath.Ext(filename)
	prefix := filename[:len(filename)-len(ext)]
	t := currentTime()
	if !f.LocalTime {
		t = t.UTC()
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s.%d", prefix, t.Format(f.backupTimeFormat()), ext, t.Unix()))
}

// logInfo pairs a backup file with its embedded timestamp.
type logInfo struct {
	timestamp int64
	entry     os.DirEntry
}

type byFormatTime []logInfo

func (b byFormatTime) Less(i, j int) bool { return b[i].timestamp < b[j].timestamp }
func (b byFormatTime) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
func (b byFormatTime) Len() int           { return len(b) }
