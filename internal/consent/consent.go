// Package consent stores visitors' cookie preferences.
package consent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	preferencesPrefix = "cookie-consent-preferences:"
	timestampPrefix   = "cookie-consent-timestamp:"
	// DefaultTTL keeps a consent decision for a year.
	DefaultTTL = 365 * 24 * time.Hour
)

// ErrMissingVisitor is returned when no visitor id is supplied.
var ErrMissingVisitor = errors.New("consent: visitor id is required")

// Preferences are the cookie categories a visitor accepted. Necessary
// cookies are always allowed.
type Preferences struct {
	Necessary  bool `json:"necessary"`
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
	Functional bool `json:"functional"`
}

// Record is a stored decision.
type Record struct {
	Preferences Preferences `json:"preferences"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Store reads and writes consent records.
type Store struct {
	kv  interfaces.KeyValueStore
	ttl time.Duration
	now func() time.Time
}

// NewStore builds a Store. ttl <= 0 uses DefaultTTL and now may be nil.
func NewStore(backend interfaces.KeyValueStore, ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{kv: backend, ttl: ttl, now: now}
}

// Get returns the record for visitor. A record without a readable
// timestamp is treated as missing.
func (s *Store) Get(ctx context.Context, visitor string) (Record, bool, error) {
	visitor, err := normalize(visitor)
	if err != nil {
		return Record{}, false, err
	}
	rawPrefs, found, err := s.kv.Get(ctx, preferencesPrefix+visitor)
	if err != nil || !found {
		return Record{}, false, err
	}
	rawTime, found, err := s.kv.Get(ctx, timestampPrefix+visitor)
	if err != nil || !found {
		return Record{}, false, err
	}

	var prefs Preferences
	if err := json.Unmarshal(rawPrefs, &prefs); err != nil {
		return Record{}, false, goerrors.Wrap(err, goerrors.CategoryInternal, "decode consent preferences")
	}
	stamp, err := time.Parse(time.RFC3339Nano, string(rawTime))
	if err != nil {
		return Record{}, false, nil
	}
	prefs.Necessary = true
	return Record{Preferences: prefs, Timestamp: stamp}, true, nil
}

// Save stores prefs for visitor with the current time.
func (s *Store) Save(ctx context.Context, visitor string, prefs Preferences) (Record, error) {
	visitor, err := normalize(visitor)
	if err != nil {
		return Record{}, err
	}
	prefs.Necessary = true
	raw, err := json.Marshal(prefs)
	if err != nil {
		return Record{}, goerrors.Wrap(err, goerrors.CategoryInternal, "encode consent preferences")
	}
	record := Record{Preferences: prefs, Timestamp: s.now().UTC()}
	if err := s.kv.Set(ctx, preferencesPrefix+visitor, raw, s.ttl); err != nil {
		return Record{}, err
	}
	if err := s.kv.Set(ctx, timestampPrefix+visitor, []byte(record.Timestamp.Format(time.RFC3339Nano)), s.ttl); err != nil {
		return Record{}, err
	}
	return record, nil
}

// Reset forgets the visitor's decision.
func (s *Store) Reset(ctx context.Context, visitor string) error {
	visitor, err := normalize(visitor)
	if err != nil {
		return err
	}
	return s.kv.Delete(ctx, preferencesPrefix+visitor, timestampPrefix+visitor)
}

// HasConsented reports whether the visitor has made a decision.
func (s *Store) HasConsented(ctx context.Context, visitor string) (bool, error) {
	_, found, err := s.Get(ctx, visitor)
	return found, err
}

func normalize(visitor string) (string, error) {
	visitor = strings.TrimSpace(visitor)
	if visitor == "" {
		return "", ErrMissingVisitor
	}
	return visitor, nil
}
