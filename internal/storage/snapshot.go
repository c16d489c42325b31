package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
)

// ItemSummary is one item type inside an inventory snapshot.
type ItemSummary struct {
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Name           string `json:"name"`
	MarketHashName string `json:"market_hash_name"`
	Amount         int64  `json:"amount"`
	Tradable       bool   `json:"tradable"`
	Marketable     bool   `json:"marketable"`
}

// InventorySnapshot is a point-in-time capture of one fetched inventory,
// used for offline display while a fresh fetch is pending.
type InventorySnapshot struct {
	SteamID   string        `json:"steam_id"`
	AppID     int           `json:"appid"`
	ContextID int64         `json:"contextid"`
	TsUnix    int64         `json:"ts"`
	Total     int64         `json:"total"`
	Items     []ItemSummary `json:"items"`
}

// SnapshotManager handles saving and loading inventory snapshots.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a snapshot manager writing under dir.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

func snapshotName(steamID string, appID int, contextID, ts int64) string {
	return fmt.Sprintf("inventory_%s_%d_%d_%d.json", steamID, appID, contextID, ts)
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *InventorySnapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	path := filepath.Join(sm.dir, snapshotName(snap.SteamID, snap.AppID, snap.ContextID, snap.TsUnix))
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Inventory snapshot saved",
		slog.String("steam_id", snap.SteamID),
		slog.String("path", path))
	return nil
}

// LoadLatest loads the newest snapshot for one inventory triple.
// Returns nil if none exists.
func (sm *SnapshotManager) LoadLatest(steamID string, appID int, contextID int64) (*InventorySnapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	prefix := fmt.Sprintf("inventory_%s_%d_%d_", steamID, appID, contextID)
	var latestPath string
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), prefix+"%d.json", &ts); err != nil {
			continue
		}
		if ts > latestTs {
			latestTs = ts
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}
	if latestPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap InventorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Inventory snapshot loaded",
		slog.String("steam_id", snap.SteamID),
		slog.String("path", latestPath))
	return &snap, nil
}

// CreateSnapshot captures a fetched inventory view.
func CreateSnapshot(view *domain.InventoryView) *InventorySnapshot {
	snap := &InventorySnapshot{
		SteamID:   view.SteamID,
		AppID:     view.AppID,
		ContextID: view.ContextID,
		TsUnix:    time.Now().Unix(),
		Total:     view.TotalAmount(false),
	}
	for _, d := range view.Descriptors() {
		snap.Items = append(snap.Items, ItemSummary{
			ClassID:        d.ClassID,
			InstanceID:     d.InstanceID,
			Name:           d.Name,
			MarketHashName: d.MarketHashName,
			Amount:         d.Amount(),
			Tradable:       d.Tradable,
			Marketable:     d.Marketable,
		})
	}
	return snap
}

// Cleanup removes old snapshots for one triple, keeping the latest N.
func (sm *SnapshotManager) Cleanup(steamID string, appID int, contextID int64, keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	prefix := fmt.Sprintf("inventory_%s_%d_%d_", steamID, appID, contextID)
	type snapFile struct {
		path string
		ts   int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), prefix+"%d.json", &ts); err == nil {
			files = append(files, snapFile{
				path: filepath.Join(sm.dir, entry.Name()),
				ts:   ts,
			})
		}
	}
	if len(files) <= keepCount {
		return nil
	}

	// Newest first; small N, no need for sort.Slice ceremony.
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].ts > files[i].ts {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		}
	}
	return nil
}
