package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := SuggestionKey("2024.1", "openai", "gpt-4o-mini", "I feel low")
	b := SuggestionKey("2024.1", "openai", "gpt-4o-mini", "I feel low")
	if a != b {
		t.Error("Expected identical keys for identical parts")
	}
	if !strings.HasPrefix(a, "caselabel:v1:suggest:") {
		t.Errorf("Unexpected key prefix: %s", a)
	}

	if SuggestionKey("2024.2", "openai", "gpt-4o-mini", "I feel low") == a {
		t.Error("Expected schema version to change the key")
	}
	if Key("x", "ab", "c") == Key("x", "a", "bc") {
		t.Error("Expected part boundaries to change the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}

	value := []byte("reply")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, found := c.Get("k")
	if !found || string(got) != "reply" {
		t.Errorf("Expected stored copy 'reply', got %q (found=%v)", got, found)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Error("Expected empty cache after clear")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)

	time.Sleep(10 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := SuggestionKey("2024.1", "ollama", "llama3.1", "text")

	if _, found := c.Get(key); found {
		t.Error("Expected miss on empty cache")
	}

	if err := c.Set(key, []byte(`{"main":[]}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := c.Get(key)
	if !found || string(got) != `{"main":[]}` {
		t.Errorf("Unexpected value %q (found=%v)", got, found)
	}

	// Survives a new instance over the same directory
	if _, found := NewDiskCache(dir, time.Hour).Get(key); !found {
		t.Error("Expected entry to persist across instances")
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	_ = c.Set(Key("t", "expired"), []byte("old"), -time.Second)
	if _, found := c.Get(Key("t", "expired")); found {
		t.Error("Expected expired entry to miss")
	}

	corrupt := Key("t", "corrupt")
	_ = c.Set(corrupt, []byte("ok"), 0)
	if err := os.WriteFile(c.path(corrupt), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get(corrupt); found {
		t.Error("Expected corrupt entry to miss")
	}
	if _, err := os.Stat(c.path(corrupt)); !os.IsNotExist(err) {
		t.Error("Expected corrupt entry to be removed")
	}
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	_ = c.Set(Key("t", "live"), []byte("1"), 0)
	_ = c.Set(Key("t", "dead1"), []byte("2"), -time.Second)
	_ = c.Set(Key("t", "dead2"), []byte("3"), -time.Second)

	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 pruned entries, got %d", removed)
	}
	if _, found := c.Get(Key("t", "live")); !found {
		t.Error("Expected live entry to survive prune")
	}

	if removed, err := NewDiskCache(filepath.Join(dir, "missing"), time.Hour).Prune(); err != nil || removed != 0 {
		t.Errorf("Expected no-op prune on missing dir, got %d, %v", removed, err)
	}
}

func TestLayeredCache(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	if _, found := c.Get("k"); found {
		t.Error("Expected miss")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := c.Get("k"); !found {
		t.Error("Expected memory hit")
	}

	// A fresh layered cache over the same dir hits disk, then memory
	fresh := NewLayeredCache(time.Minute, dir, time.Hour)
	if _, found := fresh.Get("k"); !found {
		t.Error("Expected disk hit")
	}
	if _, found := fresh.Get("k"); !found {
		t.Error("Expected promoted memory hit")
	}

	stats := fresh.Stats()
	if stats.DiskHits != 1 || stats.MemoryHits != 1 || stats.Misses != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if c.Stats().Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", c.Stats().Misses)
	}

	if err := fresh.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := NewLayeredCache(time.Minute, dir, time.Hour).Get("k"); found {
		t.Error("Expected delete to reach disk")
	}
}
