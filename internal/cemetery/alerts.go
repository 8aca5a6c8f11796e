package cemetery

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// alertDocument is the stored shape of the alert set. Entries stay raw so
// that one malformed entry neither aborts a listing nor gets lost when
// another entry is rewritten.
type alertDocument struct {
	Alerts    []json.RawMessage `json:"alerts"`
	LastCheck json.RawMessage   `json:"last_check,omitempty"`
}

// AlertEngine owns the zombie alert set and its read/unread state.
type AlertEngine struct {
	store  Store
	clock  Clock
	idgen  IDGenerator
	logger Logger

	mu sync.Mutex
}

// NewAlertEngine creates an engine over the ZombieAlertsDocument in store.
func NewAlertEngine(store Store, clock Clock, idgen IDGenerator, logger Logger) *AlertEngine {
	return &AlertEngine{store: store, clock: clock, idgen: idgen, logger: logger}
}

func (e *AlertEngine) load() (*alertDocument, bool, error) {
	data, ok, err := readDocument(e.store, ZombieAlertsDocument)
	if err != nil || !ok {
		return &alertDocument{}, ok, err
	}
	var doc alertDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return &alertDocument{}, true, parseError(ZombieAlertsDocument, err)
	}
	return &doc, true, nil
}

func (e *AlertEngine) save(doc *alertDocument) error {
	if doc.Alerts == nil {
		doc.Alerts = []json.RawMessage{}
	}
	return writeDocument(e.store, ZombieAlertsDocument, doc)
}

func decodeAlert(raw json.RawMessage) (*ZombieAlert, error) {
	var a ZombieAlert
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeLastCheck(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil || t.IsZero() {
		return nil
	}
	return &t
}

// Get returns the alert set with its counters. Entries that fail to decode
// or validate are skipped individually. An absent or unreadable document
// yields an empty set.
func (e *AlertEngine) Get() *ZombieAlerts {
	doc, _, err := e.load()
	if err != nil {
		e.logger.Warn("zombie alerts unreadable", "error", err)
	}

	out := &ZombieAlerts{
		Alerts:    make([]*ZombieAlert, 0, len(doc.Alerts)),
		LastCheck: decodeLastCheck(doc.LastCheck),
	}
	for i, raw := range doc.Alerts {
		a, err := decodeAlert(raw)
		if err != nil {
			e.logger.Warn("skipping malformed alert", "index", i, "error", err)
			continue
		}
		out.Alerts = append(out.Alerts, a)
		if !a.Notified {
			out.UnreadCount++
		}
	}
	out.TotalAlerts = len(out.Alerts)
	return out
}

// Find returns the valid alert with the given id, or nil.
func (e *AlertEngine) Find(id string) *ZombieAlert {
	for _, a := range e.Get().Alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// MarkRead flags an alert as read. Unknown ids and already-read alerts are
// no-ops and cause no write.
func (e *AlertEngine) MarkRead(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, ok, err := e.load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	for i, raw := range doc.Alerts {
		a, err := decodeAlert(raw)
		if err != nil || a.ID != id {
			continue
		}
		if a.Notified {
			return nil
		}
		a.Notified = true
		updated, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encoding alert %s: %w", id, err)
		}
		doc.Alerts[i] = updated
		if err := e.save(doc); err != nil {
			return err
		}
		e.logger.Info("alert marked read", "id", id)
		return nil
	}

	e.logger.Debug("mark read of unknown alert ignored", "id", id)
	return nil
}

// ClearAll replaces the alert set with an empty one stamped with the current time.
func (e *AlertEngine) ClearAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, err := json.Marshal(e.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("encoding last_check: %w", err)
	}
	if err := e.save(&alertDocument{LastCheck: now}); err != nil {
		return err
	}
	e.logger.Info("alerts cleared")
	return nil
}

// Record adds alerts produced by the external matcher. Missing IDs are
// generated, a missing DetectedAt becomes now, and an incoming alert
// replaces a stored one with the same ID. Within one batch the last alert
// with a given ID wins. Every incoming alert is validated before anything
// is written. Returns the number of alerts recorded.
func (e *AlertEngine) Record(incoming []*ZombieAlert) (int, error) {
	now := e.clock.Now().UTC()
	ids := make(map[string]int, len(incoming)) // id -> index in encoded
	encoded := make([]json.RawMessage, 0, len(incoming))
	for i, a := range incoming {
		if a == nil {
			return 0, fmt.Errorf("alert %d is empty", i)
		}
		rec := *a
		if rec.ID == "" {
			rec.ID = e.idgen.New()
		}
		if rec.DetectedAt.IsZero() {
			rec.DetectedAt = now
		}
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("alert %d: %w", i, err)
		}
		raw, err := json.Marshal(&rec)
		if err != nil {
			return 0, fmt.Errorf("encoding alert %s: %w", rec.ID, err)
		}
		if pos, dup := ids[rec.ID]; dup {
			encoded[pos] = raw
			continue
		}
		ids[rec.ID] = len(encoded)
		encoded = append(encoded, raw)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.load()
	if err != nil {
		return 0, err
	}

	kept := make([]json.RawMessage, 0, len(doc.Alerts)+len(encoded))
	for _, raw := range doc.Alerts {
		var head struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &head) == nil {
			if _, replaced := ids[head.ID]; replaced {
				continue
			}
		}
		kept = append(kept, raw)
	}
	doc.Alerts = append(kept, encoded...)
	if doc.LastCheck, err = json.Marshal(now); err != nil {
		return 0, fmt.Errorf("encoding last_check: %w", err)
	}

	if err := e.save(doc); err != nil {
		return 0, err
	}
	e.logger.Info("alerts recorded", "count", len(encoded))
	return len(encoded), nil
}
