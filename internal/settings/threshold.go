// Package settings exposes runtime-tunable configuration. The archive
// threshold lives in the settings table and is mirrored into memory by a
// background poller, so the hot vote path never waits on the database for it.
// Reads may trail a concurrent update by up to one poll interval.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"
)

const (
	ArchivedThresholdKey     = "archived_threshold"
	DefaultArchivedThreshold = 10
)

// Store is the slice of the data store the provider needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// ThresholdProvider serves the current archive threshold.
type ThresholdProvider struct {
	store    Store
	interval time.Duration

	mu    sync.RWMutex
	value int

	done chan struct{}
	once sync.Once
}

func NewThresholdProvider(store Store, interval time.Duration) *ThresholdProvider {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ThresholdProvider{
		store:    store,
		interval: interval,
		value:    DefaultArchivedThreshold,
		done:     make(chan struct{}),
	}
}

// Current returns the last observed threshold.
func (p *ThresholdProvider) Current() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Refresh reads the stored value once. A missing row falls back to the
// default; a malformed value is an error and keeps the previous reading.
func (p *ThresholdProvider) Refresh(ctx context.Context) error {
	raw, err := p.store.GetSetting(ctx, ArchivedThresholdKey)
	if errors.Is(err, sql.ErrNoRows) {
		p.set(DefaultArchivedThreshold)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", ArchivedThresholdKey, err)
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", ArchivedThresholdKey, raw, err)
	}
	p.set(parsed)
	return nil
}

// Set persists a new threshold and applies it locally without waiting for the
// next poll.
func (p *ThresholdProvider) Set(ctx context.Context, value int) error {
	if value < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", value)
	}
	if err := p.store.PutSetting(ctx, ArchivedThresholdKey, strconv.Itoa(value)); err != nil {
		return err
	}
	p.set(value)
	return nil
}

// Start launches the poll loop. Safe to call once; Close stops it.
func (p *ThresholdProvider) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				if err := p.Refresh(ctx); err != nil {
					log.Printf("settings: threshold refresh: %v", err)
				}
			}
		}
	}()
}

func (p *ThresholdProvider) Close() {
	p.once.Do(func() { close(p.done) })
}

func (p *ThresholdProvider) set(value int) {
	p.mu.Lock()
	p.value = value
	p.mu.Unlock()
}
