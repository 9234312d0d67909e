package jobs

import (
	"context"
	"log"
	"time"

	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/telemetry"
)

// KeyLifecycleSweeper periodically flips API keys whose expiry timestamp has
// passed to EXPIRED. This is the server-side backstop for the rotation grace
// window: a ROTATING key stays usable until its expires_at, after which the
// sweeper retires it even if no request ever touches it again.
type KeyLifecycleSweeper struct {
	apiKeyRepo *repositories.APIKeyRepository
	interval   time.Duration
	stopChan   chan struct{}
}

// NewKeyLifecycleSweeper creates a sweeper. The sweep interval comes from
// cfg.SweepIntervalMinutes (default 10).
func NewKeyLifecycleSweeper(apiKeyRepo *repositories.APIKeyRepository, cfg *config.KeysConfig) *KeyLifecycleSweeper {
	minutes := cfg.SweepIntervalMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return &KeyLifecycleSweeper{
		apiKeyRepo: apiKeyRepo,
		interval:   time.Duration(minutes) * time.Minute,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the background sweep loop. It runs an initial sweep immediately,
// then repeats on the configured interval until ctx is cancelled or Stop() is called.
func (s *KeyLifecycleSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Key lifecycle sweeper started (interval: %v)", s.interval)

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			log.Println("Key lifecycle sweeper stopped")
			return
		case <-ctx.Done():
			log.Println("Key lifecycle sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *KeyLifecycleSweeper) Stop() {
	close(s.stopChan)
}

func (s *KeyLifecycleSweeper) runSweep(ctx context.Context) {
	swept, err := s.apiKeyRepo.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("Key lifecycle sweeper: sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("Key lifecycle sweeper: expired %d key(s)", swept)
		telemetry.KeysSweptTotal.Add(float64(swept))
	}
}
