// Package flock provides an advisory inter-process lock on a download destination, held as a
// '<path>.pid' file recording the owner's PID.
package flock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrNoLockRelease = errors.New("unable to release file lock")

const (
	pidSuffix           = ".pid"
	pollInterval        = 100 * time.Millisecond
	pidWriteGracePeriod = time.Second
)

// Lock is a held lock. It must be released with Release.
type Lock struct {
	log  *zap.Logger
	path string
}

// Acquire blocks until the lock on path is held by the calling process or ctx is done. Locks left
// behind by a process that has exited, or that never got to write its PID, are released by force.
func Acquire(ctx context.Context, log *zap.Logger, path string) (*Lock, error) {
	log = log.With(zap.String("lock", path+pidSuffix))
	for {
		acquired, err := tryAcquire(log, path)
		if err != nil {
			return nil, err
		}
		if acquired {
			return &Lock{log: log, path: path}, nil
		}
		if err = waitOnPID(ctx, log, path); err != nil {
			return nil, err
		}
	}
}

func (l *Lock) Release() error {
	return release(l.log, l.path)
}

func tryAcquire(log *zap.Logger, path string) (bool, error) {
	sem, err := os.OpenFile(path+pidSuffix, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		log.Debug("Lock file already exists. Waiting for it to be released.")
		return false, nil
	} else if err != nil {
		log.Error("Unable to create lock file.", zap.Error(err))
		return false, err
	}

	log.Debug("Acquired lock. Writing PID to file.")
	if _, err = fmt.Fprint(sem, os.Getpid()); err != nil {
		_ = sem.Close()
		return false, err
	} else if err = sem.Close(); err != nil {
		return false, err
	}
	return true, nil
}

func release(log *zap.Logger, path string) error {
	log.Debug("Deleting lock file.")
	if err := os.Remove(path + pidSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error("Could not delete lock file.", zap.Error(err))
		return fmt.Errorf("%w(%s): %w", ErrNoLockRelease, path+pidSuffix, err)
	}
	return nil
}

func waitOnPID(ctx context.Context, log *zap.Logger, path string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for iterations := 1; ; iterations++ {
		if iterations%100 == 0 {
			log.Info("Waiting for download lock to be released.")
		}

		c, err := os.ReadFile(path + pidSuffix)
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("Lock has been released. PID file was deleted.")
			return nil
		} else if err != nil {
			return err
		}

		pid, err := strconv.Atoi(strings.TrimSpace(string(c)))
		if err != nil {
			// The owner may not have written its PID yet.
			fi, statErr := os.Stat(path + pidSuffix)
			if errors.Is(statErr, os.ErrNotExist) {
				return nil
			} else if statErr != nil {
				return statErr
			}
			if time.Since(fi.ModTime()) >= pidWriteGracePeriod {
				log.Debug("Forcing lock release after PID-write grace period expired.")
				return release(log, path)
			}
		} else if !processIsRunning(pid) {
			log.Debug("Forcing lock release after owning process exited.", zap.Int("pid", pid))
			return release(log, path)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
