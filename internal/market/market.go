package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Quote holds the USD price and 24h change for one asset.
type Quote struct {
	ID          string
	PriceUSD    float64
	Change24Pct float64
}

// Snapshot is the result of one fetch, ordered by the configured asset list.
type Snapshot struct {
	Quotes []Quote
}

// Fetcher issues simple-price requests for a fixed asset list.
type Fetcher struct {
	apiURL string
	ids    []string
	client *http.Client
}

func NewFetcher(apiURL string, ids []string) *Fetcher {
	return &Fetcher{
		apiURL: apiURL,
		ids:    ids,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch requests the current USD price and 24h change for every configured
// asset. Any transport, status, or decode problem comes back as an error
// value; the caller decides how to surface it.
func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(f.ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build price request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "price request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var raw map[string]struct {
		USD          float64 `json:"usd"`
		USD24hChange float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "could not decode price response")
	}

	snap := &Snapshot{}
	for _, id := range f.ids {
		data, ok := raw[id]
		if !ok {
			log.Debugf("price response has no entry for %s", id)
			continue
		}
		snap.Quotes = append(snap.Quotes, Quote{
			ID:          id,
			PriceUSD:    data.USD,
			Change24Pct: data.USD24hChange,
		})
	}

	if len(snap.Quotes) == 0 {
		return nil, errors.New("price response contained no requested assets")
	}

	log.Debugf("fetched quotes for %d asset(s)", len(snap.Quotes))
	return snap, nil
}
