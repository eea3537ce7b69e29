// Package convert maps parsed settings, firmware identity and change
// entries to and from their stored form.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-tangra/go-tangra-bios/internal/bios"
	"github.com/go-tangra/go-tangra-bios/internal/collector"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
	"github.com/go-tangra/go-tangra-bios/internal/store"
)

// SettingsToSnapshot converts a full parse and the firmware it came from to a
// store record.
func SettingsToSnapshot(settings *scedump.Settings, fw collector.Firmware) (*store.SnapshotRecord, error) {
	jsonBytes, err := json.Marshal(settings.Records())
	if err != nil {
		return nil, fmt.Errorf("marshal settings to JSON: %w", err)
	}

	takenAt := fw.CollectedAt
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}

	return &store.SnapshotRecord{
		Hostname:        fw.Hostname,
		BIOSVendor:      fw.BIOS.Vendor,
		BIOSVersion:     fw.BIOS.Version,
		BIOSReleaseDate: fw.BIOS.ReleaseDate,
		BoardProduct:    fw.Board.Product,
		SystemUUID:      fw.System.UUID,
		SettingCount:    settings.Len(),
		TakenAt:         takenAt,
		SettingsJSON:    string(jsonBytes),
	}, nil
}

// SnapshotSettings decodes the settings stored with a snapshot, in parse
// order. Encoding tags are not stored and come back empty.
func SnapshotSettings(rec *store.SnapshotRecord) ([]scedump.Record, error) {
	var out []scedump.Record
	if err := json.Unmarshal([]byte(rec.SettingsJSON), &out); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot settings: %w", err)
	}
	return out, nil
}

// Snapshot is the REST and CLI view of a stored snapshot.
type Snapshot struct {
	ID              int64            `json:"id"`
	Hostname        string           `json:"hostname"`
	BIOSVendor      string           `json:"bios_vendor,omitempty"`
	BIOSVersion     string           `json:"bios_version,omitempty"`
	BIOSReleaseDate string           `json:"bios_release_date,omitempty"`
	BoardProduct    string           `json:"board_product,omitempty"`
	SystemUUID      string           `json:"system_uuid,omitempty"`
	SettingCount    int              `json:"setting_count"`
	TakenAt         time.Time        `json:"taken_at"`
	StoredAt        time.Time        `json:"stored_at"`
	Settings        []scedump.Record `json:"settings,omitempty"`
}

// RecordToSummary converts a store record to a Snapshot without settings.
func RecordToSummary(rec *store.SnapshotRecord) Snapshot {
	return Snapshot{
		ID:              rec.ID,
		Hostname:        rec.Hostname,
		BIOSVendor:      rec.BIOSVendor,
		BIOSVersion:     rec.BIOSVersion,
		BIOSReleaseDate: rec.BIOSReleaseDate,
		BoardProduct:    rec.BoardProduct,
		SystemUUID:      rec.SystemUUID,
		SettingCount:    rec.SettingCount,
		TakenAt:         rec.TakenAt,
		StoredAt:        rec.StoredAt,
	}
}

// RecordToSnapshot converts a store record to a Snapshot with its settings.
func RecordToSnapshot(rec *store.SnapshotRecord) (Snapshot, error) {
	out := RecordToSummary(rec)
	settings, err := SnapshotSettings(rec)
	if err != nil {
		return Snapshot{}, err
	}
	out.Settings = settings
	return out, nil
}

// Change is the REST and CLI view of a change log entry.
type Change struct {
	ID          string    `json:"id"`
	Setting     string    `json:"setting"`
	OldRaw      string    `json:"old_raw"`
	NewRaw      string    `json:"new_raw"`
	RequestedAt time.Time `json:"requested_at"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// ChangeToRecord converts a service change to a store record.
func ChangeToRecord(c bios.Change) *store.ChangeRecord {
	return &store.ChangeRecord{
		ID:          c.ID,
		Setting:     c.Setting,
		OldRaw:      c.OldRaw,
		NewRaw:      c.NewRaw,
		RequestedAt: c.RequestedAt,
		Success:     c.Success,
		Error:       c.Error,
	}
}

// RecordToChange converts a store record to its view.
func RecordToChange(rec *store.ChangeRecord) Change {
	return Change{
		ID:          rec.ID,
		Setting:     rec.Setting,
		OldRaw:      rec.OldRaw,
		NewRaw:      rec.NewRaw,
		RequestedAt: rec.RequestedAt,
		Success:     rec.Success,
		Error:       rec.Error,
	}
}

// ChangeStore is the subset of store.Store used by Recorder.
type ChangeStore interface {
	InsertChange(ctx context.Context, c *store.ChangeRecord) error
}

// Recorder writes service changes to a ChangeStore.
type Recorder struct {
	Store ChangeStore
}

// RecordChange implements bios.ChangeRecorder.
func (r Recorder) RecordChange(ctx context.Context, c bios.Change) error {
	return r.Store.InsertChange(ctx, ChangeToRecord(c))
}
