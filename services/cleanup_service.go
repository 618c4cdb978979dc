package services

import (
	"context"
	"sync"
	"time"

	"filerepo/logger"
	"filerepo/storage"
)

type CleanupService interface {
	CleanStaleUploads(ctx context.Context) (int, error)
}

type cleanupService struct {
	store     storage.Backend
	retention time.Duration
}

func NewCleanupService(store storage.Backend, retention time.Duration) CleanupService {
	if retention <= 0 {
		retention = time.Hour
	}
	return &cleanupService{store: store, retention: retention}
}

// CleanStaleUploads removes partial objects left by uploads that never finished.
func (s *cleanupService) CleanStaleUploads(ctx context.Context) (int, error) {
	removed, err := s.store.RemoveStaleTemporaries(ctx, s.retention)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		logger.Infow("stale partial uploads removed", "count", removed)
	}
	return removed, nil
}

var (
	cleanupMu      sync.RWMutex
	defaultCleanup CleanupService
)

func SetCleanupService(svc CleanupService) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	defaultCleanup = svc
}

func getCleanupService() CleanupService {
	cleanupMu.RLock()
	defer cleanupMu.RUnlock()
	return defaultCleanup
}

// StartCleanupWorkers sweeps stale partial uploads every interval until ctx is done.
func StartCleanupWorkers(ctx context.Context, interval time.Duration) {
	svc := getCleanupService()
	if svc == nil {
		logger.Warnf("cleanup service not configured, workers not started")
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	go cleanupLoop(ctx, svc, interval)
}

func cleanupLoop(ctx context.Context, svc CleanupService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.CleanStaleUploads(ctx); err != nil {
				logger.Errorw("stale upload cleanup failed", "error", err)
			}
		}
	}
}
