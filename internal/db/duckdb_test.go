package db

import (
	"context"
	"os"
	"testing"

	"github.com/joeblew999/geovisor/internal/aquifer"
)

func TestSyncFeatures(t *testing.T) {
	data, err := os.ReadFile("../aquifer/testdata/vulnerabilidad.geojson")
	if err != nil {
		t.Fatal(err)
	}
	layer, err := aquifer.LoadLayer(data)
	if err != nil {
		t.Fatal(err)
	}

	conn, err := Open(Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	// Twice: the second sync replaces the first.
	for range 2 {
		if err := SyncFeatures(ctx, conn, layer); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}

	var n int
	if err := conn.QueryRowContext(ctx, "SELECT count(*) FROM "+FeaturesTable).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != layer.Len() {
		t.Fatalf("rows=%d, want %d", n, layer.Len())
	}

	var level int
	err = conn.QueryRowContext(ctx,
		"SELECT level FROM "+FeaturesTable+" WHERE name = ? ORDER BY id LIMIT 1", "Valle de Toluca").Scan(&level)
	if err != nil {
		t.Fatal(err)
	}
	if level != 3 {
		t.Fatalf("level=%d, want 3", level)
	}
}
