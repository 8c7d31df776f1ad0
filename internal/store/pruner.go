package store

import (
	"context"
	"log"
	"time"
)

// Pruner trims old lookup history on a schedule so the database stays small.
type Pruner struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
}

func NewPruner(store *Store, maxAge time.Duration) *Pruner {
	return &Pruner{
		store:    store,
		maxAge:   maxAge,
		interval: 1 * time.Hour,
	}
}

func (p *Pruner) Run(ctx context.Context) {
	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("pruner: shutting down")
			return
		case <-ticker.C:
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	cutoff := time.Now().UTC().Add(-p.maxAge)
	n, err := p.store.PruneOlderThan(cutoff)
	if err != nil {
		log.Printf("pruner: prune history: %v", err)
		return
	}
	if n > 0 {
		log.Printf("pruner: removed %d history entries older than %s", n, cutoff.Format("2006-01-02"))
	}
}
