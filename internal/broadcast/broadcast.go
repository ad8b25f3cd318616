package broadcast

import (
	"context"
	"fmt"
	"sync"

	"crypto-digest-bot/internal/market"
	"crypto-digest-bot/internal/registry"
	"crypto-digest-bot/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrRecipientGone marks a delivery failure that can never succeed again
// without the recipient re-subscribing (blocked the bot, chat deleted).
// Senders wrap such failures with this sentinel.
var ErrRecipientGone = errors.New("recipient permanently unreachable")

// Sender delivers one message to one chat.
type Sender interface {
	Send(id, text string) error
}

// Fetcher produces a market snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (*market.Snapshot, error)
}

// Generator produces commentary for a snapshot.
type Generator interface {
	Generate(ctx context.Context, snap *market.Snapshot) (string, error)
}

// Broadcaster runs the fetch->analyze->compose->send cycle. The same cycle
// serves the periodic schedule (full registry snapshot) and the on-demand
// command (single recipient).
type Broadcaster struct {
	fetcher   Fetcher
	generator Generator
	sender    Sender
	reg       *registry.Registry
}

func New(fetcher Fetcher, generator Generator, sender Sender, reg *registry.Registry) *Broadcaster {
	return &Broadcaster{
		fetcher:   fetcher,
		generator: generator,
		sender:    sender,
		reg:       reg,
	}
}

// RunAll executes one cycle against the current registry snapshot and
// returns the number of successful deliveries. Recipients subscribing
// mid-cycle are picked up on the next one.
func (b *Broadcaster) RunAll(ctx context.Context) int {
	return b.Run(ctx, b.reg.All())
}

// Run executes one cycle for the given recipients. A fetch failure turns
// into an error notice instead of a digest; the completion endpoint is not
// called in that case. A failed delivery to one recipient never blocks the
// others, and permanently unreachable recipients are pruned from the
// registry before the cycle ends.
func (b *Broadcaster) Run(ctx context.Context, recipients []registry.Recipient) int {
	if len(recipients) == 0 {
		return 0
	}

	snap, err := b.fetcher.Fetch(ctx)
	if err != nil {
		log.Errorf("market fetch failed: %v", err)
		notice := fmt.Sprintf(translation.Translate("❌ Failed to fetch market data: %v"), err)
		return b.fanOut(recipients, notice)
	}

	analysisText, err := b.generator.Generate(ctx, snap)
	if err != nil {
		log.Errorf("commentary generation failed: %v", err)
		analysisText = fmt.Sprintf(translation.Translate("AI analysis is unavailable: %v"), err)
	}

	return b.fanOut(recipients, Compose(snap, analysisText))
}

// fanOut sends text to every recipient in parallel. Deliveries are
// independent, no ordering between recipients is promised.
func (b *Broadcaster) fanOut(recipients []registry.Recipient, text string) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
		gone      []string
	)

	for _, rec := range recipients {
		wg.Add(1)
		go func(rec registry.Recipient) {
			defer wg.Done()

			err := b.sender.Send(rec.ID, text)
			switch {
			case err == nil:
				mu.Lock()
				delivered++
				mu.Unlock()
			case errors.Is(err, ErrRecipientGone):
				log.Infof("recipient %s is gone, unsubscribing: %v", rec.ID, err)
				mu.Lock()
				gone = append(gone, rec.ID)
				mu.Unlock()
			default:
				log.Errorf("failed to deliver to %s: %v", rec.ID, err)
			}
		}(rec)
	}
	wg.Wait()

	for _, id := range gone {
		b.reg.Remove(id)
	}

	log.Debugf("cycle delivered %d/%d message(s)", delivered, len(recipients))
	return delivered
}
