// Package store records successful weather lookups so the UI can offer
// recent searches. It plays no part in the resolution workflow itself.
package store

import (
	"database/sql"
	"time"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Lookup is one recorded weather resolution.
type Lookup struct {
	ID            int64     `json:"id"`
	QueryKind     string    `json:"queryKind"` // "name" or "coordinates"
	Query         string    `json:"query"`
	LocationLabel string    `json:"locationLabel"`
	Temperature   sql.NullInt64
	IconKey       sql.NullString
	LookedUpAt    time.Time `json:"lookedUpAt"`
}

func (s *Store) InsertLookup(l Lookup) error {
	_, err := s.db.Exec(`
		INSERT INTO lookups (query_kind, query, location_label, temperature, icon_key, looked_up_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.QueryKind, l.Query, l.LocationLabel, l.Temperature, l.IconKey, l.LookedUpAt)
	return err
}

// RecentLookups returns the latest lookup per location label, most recent
// first, up to limit entries.
func (s *Store) RecentLookups(limit int) ([]Lookup, error) {
	rows, err := s.db.Query(`
		SELECT id, query_kind, query, location_label, temperature, icon_key, looked_up_at
		FROM lookups
		WHERE id IN (SELECT MAX(id) FROM lookups GROUP BY location_label)
		ORDER BY looked_up_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lookups []Lookup
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.QueryKind, &l.Query, &l.LocationLabel, &l.Temperature, &l.IconKey, &l.LookedUpAt); err != nil {
			return nil, err
		}
		lookups = append(lookups, l)
	}
	return lookups, rows.Err()
}

// PruneOlderThan deletes history entries before the cutoff.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM lookups WHERE looked_up_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
