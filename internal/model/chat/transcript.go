package chat

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultSystemPrompt seeds a transcript when no persona text is configured.
const DefaultSystemPrompt = "You are a helpful assistant."

// ErrInvalidRole is returned by Append for roles outside system/user/assistant.
var ErrInvalidRole = errors.New("invalid message role")

// Transcript is the ordered message history of one session. The first
// element is always the system seed once Initialize has run.
type Transcript struct {
	mu       sync.Mutex
	seed     string
	messages []Message
}

// NewTranscript returns an initialized transcript seeded with systemPrompt.
func NewTranscript(systemPrompt string) *Transcript {
	t := &Transcript{seed: systemPrompt}
	t.Initialize()
	return t
}

// Initialize creates the system seed if the transcript is empty. Calling it
// again is a no-op.
func (t *Transcript) Initialize() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.messages) > 0 {
		return
	}
	seed := t.seed
	if seed == "" {
		seed = DefaultSystemPrompt
	}
	t.messages = make([]Message, 1, 16)
	t.messages[0] = SystemMessage(seed)
}

// Append adds a turn to the end of the transcript.
func (t *Transcript) Append(role Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	t.mu.Lock()
	t.messages = append(t.messages, Message{Role: role, Content: content})
	t.mu.Unlock()
	return nil
}

// Reset discards everything after the system seed.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.messages) > 1 {
		clear(t.messages[1:])
		t.messages = t.messages[:1]
	}
}

// Snapshot returns a point-in-time copy of every message, seed included.
func (t *Transcript) Snapshot() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	copied := make([]Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// History returns a copy of the displayable turns, skipping the system seed.
func (t *Transcript) History() []Message {
	snapshot := t.Snapshot()
	if len(snapshot) == 0 {
		return snapshot
	}
	return snapshot[1:]
}

// Len reports the number of messages, seed included.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
