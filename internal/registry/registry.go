package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Recipient is one subscribed chat.
type Recipient struct {
	ID           string    `json:"-"`
	DisplayName  *string   `json:"display_name"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// Registry is the durable set of subscribed chats. Every mutation is
// persisted synchronously before the call returns; the on-disk file is
// replaced with a rename so a crash mid-write cannot tear committed state.
type Registry struct {
	mu      sync.Mutex
	path    string
	entries map[string]Recipient
	order   []string
}

// Load reads the registry file at path. A missing file yields an empty
// registry; a malformed file is logged and also degrades to empty rather
// than taking the process down.
func Load(path string) *Registry {
	r := &Registry{
		path:    path,
		entries: make(map[string]Recipient),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debugf("no registry file at %s, starting empty", path)
		return r
	}
	if err != nil {
		log.Errorf("failed to read registry file %s: %v", path, err)
		return r
	}

	var raw map[string]Recipient
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Errorf("malformed registry file %s, starting empty: %v", path, err)
		return r
	}

	for id, rec := range raw {
		rec.ID = id
		r.entries[id] = rec
		r.order = append(r.order, id)
	}

	// JSON object order is not preserved, restore subscription order.
	sort.Slice(r.order, func(i, j int) bool {
		a, b := r.entries[r.order[i]], r.entries[r.order[j]]
		if a.SubscribedAt.Equal(b.SubscribedAt) {
			return r.order[i] < r.order[j]
		}
		return a.SubscribedAt.Before(b.SubscribedAt)
	})

	log.Infof("loaded %d subscriber(s) from %s", len(r.entries), path)
	return r
}

// Add subscribes a chat. Re-adding an existing id updates the display name
// and keeps the original subscription time.
func (r *Registry) Add(id, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var name *string
	if displayName != "" {
		name = &displayName
	}

	if existing, ok := r.entries[id]; ok {
		existing.DisplayName = name
		r.entries[id] = existing
	} else {
		r.entries[id] = Recipient{
			ID:           id,
			DisplayName:  name,
			SubscribedAt: time.Now().UTC(),
		}
		r.order = append(r.order, id)
	}

	if err := r.save(); err != nil {
		log.Errorf("failed to persist registry: %v", err)
	}
}

// Remove unsubscribes a chat. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if err := r.save(); err != nil {
		log.Errorf("failed to persist registry: %v", err)
	}
}

func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// All returns a subscription-ordered copy of the current recipients.
// Mutations racing in after the copy do not affect the returned slice.
func (r *Registry) All() []Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Recipient, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// save writes the full registry to a temp file and renames it over the
// live one. Callers must hold r.mu.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode registry")
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".subscribers-*.json")
	if err != nil {
		return errors.Wrap(err, "could not create temp registry file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "could not write temp registry file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "could not close temp registry file")
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "could not replace registry file")
	}
	return nil
}
