package build

import (
	"os"
	"path/filepath"
	"syscall"
)

// RegistryLock guards the whole verify-dependency traversal of §4.1/§4.2
// with a single exclusive lock on `<packageCache>/.lock`, so two `gren
// make`/`gren install` invocations sharing one package cache never race
// each other's writes into the same package-version directory.
type RegistryLock struct {
	f *os.File
}

// AcquireRegistryLock blocks until it holds the exclusive lock on
// cacheRoot/.lock, creating the file if necessary.
func AcquireRegistryLock(cacheRoot string) (*RegistryLock, error) {
	if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(cacheRoot, ".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return &RegistryLock{f: f}, nil
}

// Release unlocks and closes the lock file.
func (l *RegistryLock) Release() error {
	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
