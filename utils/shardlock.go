package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process already holds the shard lock.
var ErrAlreadyRunning = errors.New("another pinbot instance is already running")

// ShardLock guards the single gateway shard this bot runs: two processes on the same host
// must never open the same shard concurrently.
type ShardLock struct {
	lockFile *flock.Flock
	lockPath string
}

// NewShardLock creates the lock for the given shard inside lockDir, creating the directory
// if needed. The lock is not acquired until TryLock is called.
func NewShardLock(lockDir string, shardID int) (*ShardLock, error) {
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "pinbot")
	}

	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lockPath := filepath.Join(lockDir, fmt.Sprintf("shard-%d.lock", shardID))

	return &ShardLock{
		lockFile: flock.New(lockPath),
		lockPath: lockPath,
	}, nil
}

// TryLock attempts to acquire the shard lock.
// Returns ErrAlreadyRunning if another process holds it.
func (l *ShardLock) TryLock() error {
	locked, err := l.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to try lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("%w (lock file %s)", ErrAlreadyRunning, l.lockPath)
	}

	return nil
}

// Unlock releases the shard lock and removes the lock file
func (l *ShardLock) Unlock() error {
	if l.lockFile == nil {
		return nil
	}

	if err := l.lockFile.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	return nil
}

// LockPath returns the path to the lock file
func (l *ShardLock) LockPath() string {
	return l.lockPath
}
