package state

import (
	"sync"
	"testing"
)

func TestMemoryManagerStateAndTemp(t *testing.T) {
	m := NewMemoryManager()
	const chat = int64(-100)

	if m.InProgress(chat) {
		t.Fatal("fresh chat should be idle")
	}
	m.SetState(chat, "awaiting")
	m.SetTemp(chat, "field", "Dollar")
	m.SetTemp(chat, "prompt_id", 42)

	if !m.InProgress(chat) || m.GetState(chat) != "awaiting" {
		t.Fatalf("state = %q", m.GetState(chat))
	}
	if v, ok := m.GetTempString(chat, "field"); !ok || v != "Dollar" {
		t.Fatalf("field = %q %v", v, ok)
	}
	if v, ok := m.GetTempInt(chat, "prompt_id"); !ok || v != 42 {
		t.Fatalf("prompt_id = %d %v", v, ok)
	}
	if _, ok := m.GetTempInt(chat, "field"); ok {
		t.Fatal("string value must not read as int")
	}

	snap := m.Snapshot(chat)
	snap.TempData["field"] = "Euro"
	if v, _ := m.GetTempString(chat, "field"); v != "Dollar" {
		t.Fatal("snapshot must not alias session data")
	}

	m.ClearState(chat)
	if m.InProgress(chat) {
		t.Fatal("state should be idle after ClearState")
	}
	if _, ok := m.GetTemp(chat, "field"); !ok {
		t.Fatal("ClearState must keep temp data")
	}

	m.ClearTemp(chat, "field")
	if _, ok := m.GetTemp(chat, "field"); ok {
		t.Fatal("ClearTemp did not remove value")
	}
	m.Clear(chat)
	if _, ok := m.GetTemp(chat, "prompt_id"); ok {
		t.Fatal("Clear did not drop session")
	}
}

func TestMemoryManagerChatsAreIndependent(t *testing.T) {
	m := NewMemoryManager()
	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			m.SetState(chat, "awaiting")
			m.SetTemp(chat, "prompt_id", int(chat))
		}(i)
	}
	wg.Wait()
	for i := int64(1); i <= 20; i++ {
		if v, _ := m.GetTempInt(i, "prompt_id"); v != int(i) {
			t.Fatalf("chat %d prompt_id = %d", i, v)
		}
	}
}
