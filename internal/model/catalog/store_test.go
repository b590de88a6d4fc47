package catalog

import "testing"

func TestSeedDefaultsToMistral(t *testing.T) {
	store := NewMemoryStore(Seed())
	if got := store.Default().ID; got != DefaultModelID {
		t.Fatalf("expected default %s, got %s", DefaultModelID, got)
	}
	if n := len(store.List()); n != 5 {
		t.Fatalf("expected 5 models, got %d", n)
	}
}

func TestFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())
	if _, ok := store.FindByID("google/gemma-7b-it"); !ok {
		t.Fatal("expected gemma to be listed")
	}
	if _, ok := store.FindByID("openai/gpt-4o"); ok {
		t.Fatal("unexpected model found")
	}
}

func TestEmptyStoreFallsBackToBuiltinDefault(t *testing.T) {
	store := NewMemoryStore(nil)
	if got := store.Default().ID; got != DefaultModelID {
		t.Fatalf("expected builtin default, got %s", got)
	}
}
