package scheduler

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler runs a cycle function at a fixed period in the background.
// Start is triggered by the first subscription (or at boot when the
// registry loaded non-empty); Stop exists for clean shutdown. Both are
// idempotent. Stopping never cancels a cycle already in flight, it only
// prevents the next tick.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	cycle    func()
	stop     chan struct{}
	running  bool
}

func New(interval time.Duration, cycle func()) *Scheduler {
	return &Scheduler{
		interval: interval,
		cycle:    cycle,
	}
}

// Start launches the periodic loop. Calling it while running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	go s.loop(s.stop)
	log.Infof("scheduler started, broadcasting every %s", s.interval)
}

// Stop halts the periodic loop. Calling it while idle is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	log.Info("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			log.Debug("scheduler tick, running broadcast cycle")
			s.cycle()
		}
	}
}
