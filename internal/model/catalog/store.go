package catalog

// Store exposes the selectable models to HTTP handlers.
type Store interface {
	List() []ModelOption
	FindByID(id string) (ModelOption, bool)
	Default() ModelOption
}

// MemoryStore implements Store with an in-memory slice. The first item is
// the default selection.
type MemoryStore struct {
	items []ModelOption
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied models.
func NewMemoryStore(items []ModelOption) *MemoryStore {
	return &MemoryStore{items: append([]ModelOption(nil), items...)}
}

// List returns the models in display order.
func (s *MemoryStore) List() []ModelOption {
	return append([]ModelOption(nil), s.items...)
}

// FindByID looks up a model by identifier.
func (s *MemoryStore) FindByID(id string) (ModelOption, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return ModelOption{}, false
}

// Default returns the first model, or the built-in default when empty.
func (s *MemoryStore) Default() ModelOption {
	if len(s.items) == 0 {
		return ModelOption{ID: DefaultModelID, Label: DefaultModelID}
	}
	return s.items[0]
}
