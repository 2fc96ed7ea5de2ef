package build

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRegistryLockCreatesCacheRootAndLockFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "cache")

	lock, err := AcquireRegistryLock(root)
	if err != nil {
		t.Fatalf("AcquireRegistryLock: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(filepath.Join(root, ".lock")); err != nil {
		t.Fatalf("expected a .lock file under the cache root: %v", err)
	}
}

func TestReleaseUnlocksAndAllowsReacquisition(t *testing.T) {
	root := t.TempDir()

	first, err := AcquireRegistryLock(root)
	if err != nil {
		t.Fatalf("first AcquireRegistryLock: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := AcquireRegistryLock(root)
	if err != nil {
		t.Fatalf("expected to reacquire the lock after Release, got %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
