package jobqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/internal/pkg/env"
)

// Replenisher tops up the invite link pools.
type Replenisher interface {
	ReplenishAll(ctx context.Context)
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue           *Queue
	replenisher     Replenisher
	replenishTicker *time.Ticker
	stopCh          chan struct{}
	wg              sync.WaitGroup
	mu              sync.Mutex
	running         bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := envInt("JOBQUEUE_WORKERS", 3)

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// SetReplenisher wires the pool replenishment sweep. Must be called before Start.
func (m *Manager) SetReplenisher(r Replenisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replenisher = r
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Pool replenishment sweep - configurable interval
	replenishInterval := time.Duration(envInt("POOL_REPLENISH_INTERVAL", 10)) * time.Minute
	m.replenishTicker = time.NewTicker(replenishInterval)
	m.wg.Add(1)
	go m.replenishWorker(m.stopCh, replenishInterval)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.replenishTicker != nil {
		m.replenishTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// replenishWorker runs periodically to top up every funnel's invite pool
func (m *Manager) replenishWorker(stopCh <-chan struct{}, interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started replenish worker (interval: %s)", interval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Replenish worker stopping")
			return
		case <-m.replenishTicker.C:
			if m.replenisher == nil {
				continue
			}
			log.Debug("[JobQueue Manager] Running invite pool replenishment sweep")
			m.replenisher.ReplenishAll(context.Background())
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(env.GetEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return def
}
