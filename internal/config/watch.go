package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"os"
	"time"
)

// profileFile remembers the last applied state of technicians.yaml.
type profileFile struct {
	path    string
	modTime time.Time
	sum     [sha256.Size]byte
}

// changed reports whether the file was touched and its bytes differ from the
// last applied version. Touch-only updates are absorbed.
func (f *profileFile) changed() (bool, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(f.modTime) {
		return false, nil
	}
	f.modTime = info.ModTime()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	if bytes.Equal(sum[:], f.sum[:]) {
		return false, nil
	}
	f.sum = sum
	return true, nil
}

// WatchTechnicians loads path once, hands the result to onUpdate, then polls
// every interval until ctx is done. A file that fails to load is reported to
// onError and the previous profiles stay in effect.
func WatchTechnicians(ctx context.Context, path string, interval time.Duration, onUpdate func(*TechniciansConfig), onError func(error)) error {
	if path == "" {
		path = DefaultTechniciansPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	file := &profileFile{path: path}
	if _, err := file.changed(); err != nil {
		return err
	}
	initial, err := LoadTechnicians(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(initial)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			changed, err := file.changed()
			if err != nil || !changed {
				continue
			}
			updated, err := LoadTechnicians(path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onUpdate != nil {
				onUpdate(updated)
			}
		}
	}()
	return nil
}
