package usecase

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestStartAlwaysCreatesAndActivates(t *testing.T) {
	sm := NewSessionManager("agent-a", "")

	a := sm.Start()
	b := sm.Start()

	if a.ID == b.ID {
		t.Fatal("two starts produced the same session ID")
	}
	if sm.Active() != b {
		t.Error("latest started session should be active")
	}
	if sm.Count() != 2 {
		t.Errorf("Count = %d, want 2", sm.Count())
	}
	if a.AgentID != "agent-a" {
		t.Errorf("AgentID = %q", a.AgentID)
	}
	if len(a.ID) != 26 {
		t.Errorf("ID should be a 26-char ULID, got %q", a.ID)
	}
}

func TestStartSessionIDUniqueness(t *testing.T) {
	sm := NewSessionManager("agent-a", "")

	seen := make(map[string]bool, 2000)
	for i := 0; i < 2000; i++ {
		s := sm.Start()
		if seen[s.ID] {
			t.Fatalf("duplicate session ID after %d starts: %s", i, s.ID)
		}
		seen[s.ID] = true
	}
}

func TestGenerateULIDSameInstantDistinct(t *testing.T) {
	// Two sessions created in the same instant must not share an ID;
	// the entropy half may not be a function of the timestamp alone.
	now := time.Now()
	a := generateULID(now)
	b := generateULID(now)
	if a == b {
		t.Fatalf("same-instant ULIDs collide: %s", a)
	}
}

func TestLoadMissLeavesActiveUnchanged(t *testing.T) {
	sm := NewSessionManager("agent-a", "")

	a := sm.Start()
	got, ok := sm.Load("bogus")
	if ok || got != nil {
		t.Errorf("Load(bogus) = (%v, %v), want (nil, false)", got, ok)
	}
	if sm.Active() != a {
		t.Error("active session changed on lookup miss")
	}
}

func TestLoadHitActivates(t *testing.T) {
	sm := NewSessionManager("agent-a", "")

	a := sm.Start()
	sm.Start() // b is now active

	got, ok := sm.Load(a.ID)
	if !ok || got != a {
		t.Fatalf("Load = (%v, %v)", got, ok)
	}
	if sm.Active() != a {
		t.Error("loaded session should become active")
	}
}

func TestActiveNilBeforeFirstStart(t *testing.T) {
	sm := NewSessionManager("agent-a", "")
	if sm.Active() != nil {
		t.Error("active should be nil before the first start")
	}
}

func TestConcurrentStartActiveInRegistry(t *testing.T) {
	sm := NewSessionManager("agent-a", "")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.Start()
		}()
	}
	wg.Wait()

	active := sm.Active()
	if active == nil {
		t.Fatal("no active session after concurrent starts")
	}
	got, ok := sm.Load(active.ID)
	if !ok || got != active {
		t.Error("active session not present in registry")
	}
	if sm.Count() != 100 {
		t.Errorf("Count = %d, want 100", sm.Count())
	}
}

func TestSaveAndLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	sm := NewSessionManager("agent-a", dir)

	s := sm.Start()
	s.AddMessage(messageFrom("user", "hello"))
	if err := sm.Save(s.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh manager for the same agent finds it on disk.
	sm2 := NewSessionManager("agent-a", dir)
	got, ok := sm2.Load(s.ID)
	if !ok {
		t.Fatal("Load from disk failed")
	}
	if len(got.Messages()) != 1 || got.Messages()[0].Content != "hello" {
		t.Errorf("messages = %+v", got.Messages())
	}
	if sm2.Active() != got {
		t.Error("disk-loaded session should become active")
	}
}

func TestLoadRefusesOtherAgentsSession(t *testing.T) {
	dir := t.TempDir()
	sm := NewSessionManager("agent-a", dir)
	s := sm.Start()
	if err := sm.Save(s.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other := NewSessionManager("agent-b", dir)
	if _, ok := other.Load(s.ID); ok {
		t.Error("agent-b loaded agent-a's session")
	}
	if other.Active() != nil {
		t.Error("active changed on refused load")
	}
}

func TestSaveRejectsUnsafeID(t *testing.T) {
	sm := NewSessionManager("agent-a", t.TempDir())
	for _, id := range []string{"", "../escape", "a/b", "x\x00y"} {
		if err := sm.Save(id); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}

func TestReapStale(t *testing.T) {
	dir := t.TempDir()
	sm := NewSessionManager("agent-a", dir)

	old := sm.Start()
	old.mu.Lock()
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	old.mu.Unlock()
	if err := sm.Save(old.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh := sm.Start() // also active

	if n := sm.ReapStale(time.Hour); n != 1 {
		t.Fatalf("ReapStale = %d, want 1", n)
	}
	if _, ok := sm.Load(old.ID); ok {
		t.Error("stale session still loadable")
	}
	if sm.Active() != fresh {
		t.Error("active session changed by reaping")
	}
	if _, err := os.Stat(filepath.Join(dir, old.ID+".json")); !os.IsNotExist(err) {
		t.Error("stale session file should be removed")
	}
}

func TestReapStaleSweepsOrphanedFiles(t *testing.T) {
	dir := t.TempDir()

	// An earlier run leaves a session file behind.
	prev := NewSessionManager("agent-a", dir)
	orphan := prev.Start()
	if err := prev.Save(orphan.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stamp := time.Now().Add(-2 * time.Hour)
	path := filepath.Join(dir, orphan.ID+".json")
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	// A fresh manager has no in-memory entry for it.
	sm := NewSessionManager("agent-a", dir)
	fresh := sm.Start()
	if err := sm.Save(fresh.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if n := sm.ReapStale(time.Hour); n != 1 {
		t.Fatalf("ReapStale = %d, want 1", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("orphaned stale file should be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, fresh.ID+".json")); err != nil {
		t.Errorf("fresh session file should survive: %v", err)
	}
}

func TestReapNeverRemovesActive(t *testing.T) {
	sm := NewSessionManager("agent-a", "")

	s := sm.Start()
	s.mu.Lock()
	s.UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	if n := sm.ReapStale(time.Hour); n != 0 {
		t.Errorf("ReapStale = %d, want 0 (active protected)", n)
	}
	if sm.Active() != s {
		t.Error("active session reaped")
	}
}
