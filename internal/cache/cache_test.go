package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRequestKey(t *testing.T) {
	a := RequestKey("POST", "https://votaciones.hcdn.gob.ar/votaciones/search", "anoSearch=2024")
	b := RequestKey("POST", "https://votaciones.hcdn.gob.ar/votaciones/search", "anoSearch=2023")
	c := RequestKey("GET", "https://votaciones.hcdn.gob.ar/votaciones/search", "anoSearch=2024")

	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("Expected prefix %q, got %s", keyPrefix, a)
	}
	if a == b {
		t.Error("Expected different bodies to yield different keys")
	}
	if a == c {
		t.Error("Expected different methods to yield different keys")
	}
	if a != RequestKey("POST", "https://votaciones.hcdn.gob.ar/votaciones/search", "anoSearch=2024") {
		t.Error("Expected key to be stable")
	}
}

func TestKey_PartBoundaries(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected part boundaries to affect the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss on empty cache")
	}

	_ = c.Set("k", []byte("v"), 0)
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("Expected hit with v, got %q found=%v", val, found)
	}
	if c.ItemCount() != 1 {
		t.Errorf("Expected 1 item, got %d", c.ItemCount())
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	if err := c.Set("fresh", []byte("page"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("stale", []byte("old"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if val, found := c.Get("fresh"); !found || string(val) != "page" {
		t.Errorf("Expected fresh hit, got %q found=%v", val, found)
	}
	if _, found := c.Get("stale"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("from-disk"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	val, found := layered.Get("k")
	if !found || string(val) != "from-disk" {
		t.Fatalf("Expected disk hit, got %q found=%v", val, found)
	}

	if _, found := layered.memory.Get("k"); !found {
		t.Error("Expected disk hit to be promoted to memory")
	}

	if err := layered.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := layered.Get("k"); found {
		t.Error("Expected miss after delete")
	}
	if err := layered.Delete("never-set"); err != nil {
		t.Errorf("Deleting a missing key should not fail: %v", err)
	}
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	live := Key("votacion", "5404")
	_ = c.Set(live, []byte("page"), 0)
	_ = c.Set(Key("votacion", "5405"), []byte("old"), -time.Second)
	_ = c.Set(Key("votacion", "5406"), []byte("old"), -time.Second)

	corrupt := filepath.Join(dir, "zz", "corrupt"+entryExt)
	if err := os.MkdirAll(filepath.Dir(corrupt), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corrupt, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 entries pruned, got %d", removed)
	}
	if _, found := c.Get(live); !found {
		t.Error("Expected live entry to survive pruning")
	}
}

func TestDiskCache_PruneMissingDir(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "never-created"), time.Hour)

	removed, err := c.Prune()
	if err != nil || removed != 0 {
		t.Errorf("Expected empty prune, got %d, %v", removed, err)
	}
}

func TestDiskCache_ShardedPath(t *testing.T) {
	c := NewDiskCache("/tmp/legisla-cache", time.Hour)
	key := Key("GET", "https://votaciones.hcdn.gob.ar/votacion/5404")
	digest := strings.TrimPrefix(key, keyPrefix)

	want := filepath.Join("/tmp/legisla-cache", digest[:2], digest+entryExt)
	if got := c.path(key); got != want {
		t.Errorf("path = %s, want %s", got, want)
	}
}
