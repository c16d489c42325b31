package storage

import (
	"testing"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
)

func testView(t *testing.T) *domain.InventoryView {
	t.Helper()
	view := domain.NewInventoryView("76561198000000001", 3017120, 2)
	view.MergePage(
		[]*domain.ItemDescriptor{
			{ClassID: "100", InstanceID: "0", Name: "Ore", MarketHashName: "Ore", Tradable: true, Marketable: true},
		},
		[]*domain.ItemUnit{
			{AssetID: "a1", ClassID: "100", InstanceID: "0", Amount: 3},
			{AssetID: "a2", ClassID: "100", InstanceID: "0", Amount: 5},
		},
	)
	return view
}

func TestSnapshot_SaveAndLoad(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	snap := CreateSnapshot(testView(t))
	if err := sm.Save(snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := sm.LoadLatest("76561198000000001", 3017120, 2)
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if loaded.Total != 8 {
		t.Errorf("Total mismatch: got %d", loaded.Total)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Name != "Ore" {
		t.Errorf("Items mismatch: %+v", loaded.Items)
	}
}

func TestSnapshot_LoadLatestPicksNewest(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	older := CreateSnapshot(testView(t))
	older.TsUnix = 1000
	older.Total = 1
	newer := CreateSnapshot(testView(t))
	newer.TsUnix = 2000

	if err := sm.Save(older); err != nil {
		t.Fatal(err)
	}
	if err := sm.Save(newer); err != nil {
		t.Fatal(err)
	}

	loaded, err := sm.LoadLatest("76561198000000001", 3017120, 2)
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded.TsUnix != 2000 {
		t.Errorf("Loaded ts = %d, want 2000", loaded.TsUnix)
	}
}

func TestSnapshot_LoadLatestScopesByTriple(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())
	if err := sm.Save(CreateSnapshot(testView(t))); err != nil {
		t.Fatal(err)
	}

	loaded, err := sm.LoadLatest("76561198999999999", 3017120, 2)
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for another account's triple")
	}
}

func TestSnapshot_MissingDir(t *testing.T) {
	sm := NewSnapshotManager("/nonexistent/snapshots")
	loaded, err := sm.LoadLatest("1", 1, 1)
	if err != nil || loaded != nil {
		t.Errorf("Expected nil, nil; got %v, %v", loaded, err)
	}
}

func TestSnapshot_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for ts := int64(1); ts <= 5; ts++ {
		snap := CreateSnapshot(testView(t))
		snap.TsUnix = ts
		if err := sm.Save(snap); err != nil {
			t.Fatal(err)
		}
	}

	if err := sm.Cleanup("76561198000000001", 3017120, 2, 2); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	loaded, err := sm.LoadLatest("76561198000000001", 3017120, 2)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.TsUnix != 5 {
		t.Errorf("Newest snapshot lost: %+v", loaded)
	}
}
