// Package memory provides bounded, persisted conversation history.
//
// The history is an ordered sequence of user/assistant turns capped at
// twice the configured turn count, trimmed from the oldest. Every
// mutation rewrites the backing store; a persistence failure is logged
// and the in-memory state stays authoritative.
package memory

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversation entry. Immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// document is the persisted shape of the conversation history.
type document struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Turns       []Turn    `json:"turns"`
}

// Memory holds the bounded conversation history.
type Memory struct {
	mu       sync.RWMutex
	turns    []Turn
	maxTurns int
	preamble string

	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithStore sets the persistence backend.
func WithStore(store Store) Option {
	return func(m *Memory) { m.store = store }
}

// WithFile persists the history to a JSON file.
func WithFile(path string) Option {
	return WithStore(NewJSONStore(path))
}

// WithPreamble sets the system preamble prepended by Messages.
func WithPreamble(text string) Option {
	return func(m *Memory) { m.preamble = text }
}

// WithLogger sets the logger used for non-fatal persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memory) { m.logger = logger }
}

// New creates a Memory capped at 2*maxTurns entries. If a store is
// configured, existing history is loaded immediately.
func New(maxTurns int, opts ...Option) *Memory {
	if maxTurns <= 0 {
		maxTurns = 10
	}

	m := &Memory{
		maxTurns: maxTurns,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.load()
	return m
}

func (m *Memory) load() {
	if m.store == nil {
		return
	}

	data, err := m.store.Load()
	if err != nil {
		m.logger.Warn("failed to load conversation history", "error", err)
		return
	}
	if data == nil {
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		m.logger.Warn("failed to parse conversation history", "error", err)
		return
	}

	m.mu.Lock()
	m.turns = doc.Turns
	m.trimLocked()
	m.mu.Unlock()
}

// AddUser appends a user turn, trims, and persists.
func (m *Memory) AddUser(text string) {
	m.add(Turn{Role: RoleUser, Content: text})
}

// AddAssistant appends an assistant turn, trims, and persists.
func (m *Memory) AddAssistant(text string) {
	m.add(Turn{Role: RoleAssistant, Content: text})
}

func (m *Memory) add(t Turn) {
	m.mu.Lock()
	m.turns = append(m.turns, t)
	m.trimLocked()
	m.mu.Unlock()

	m.persist()
}

// trimLocked drops the oldest entries so at most 2*maxTurns remain.
// Caller must hold mu.
func (m *Memory) trimLocked() {
	max := 2 * m.maxTurns
	if len(m.turns) > max {
		m.turns = m.turns[len(m.turns)-max:]
	}
}

// Clear empties the history and persists.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.turns = nil
	m.mu.Unlock()

	m.persist()
}

// ForgetLast removes the trailing assistant turn if present, then the
// new trailing user turn if present. Each check is independent: after
// an errored turn that left a user turn with no assistant reply, only
// the user turn is removed.
func (m *Memory) ForgetLast() {
	m.mu.Lock()
	if n := len(m.turns); n > 0 && m.turns[n-1].Role == RoleAssistant {
		m.turns = m.turns[:n-1]
	}
	if n := len(m.turns); n > 0 && m.turns[n-1].Role == RoleUser {
		m.turns = m.turns[:n-1]
	}
	m.mu.Unlock()

	m.persist()
}

// Messages returns the history prefixed with the system preamble,
// ready for submission to a language model.
func (m *Memory) Messages() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Turn, 0, len(m.turns)+1)
	if m.preamble != "" {
		out = append(out, Turn{Role: RoleSystem, Content: m.preamble})
	}
	out = append(out, m.turns...)
	return out
}

// Turns returns a copy of the raw history without the preamble.
func (m *Memory) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of stored turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// LastUser returns the content of the most recent user turn.
func (m *Memory) LastUser() (string, bool) {
	return m.last(RoleUser)
}

// LastAssistant returns the content of the most recent assistant turn.
func (m *Memory) LastAssistant() (string, bool) {
	return m.last(RoleAssistant)
}

func (m *Memory) last(role Role) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].Role == role {
			return m.turns[i].Content, true
		}
	}
	return "", false
}

// persist rewrites the full document. Failures are logged, never fatal.
func (m *Memory) persist() {
	if m.store == nil {
		return
	}

	m.mu.RLock()
	doc := document{LastUpdated: m.now(), Turns: m.turns}
	data, err := json.MarshalIndent(doc, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		m.logger.Warn("failed to encode conversation history", "error", err)
		return
	}
	if err := m.store.Save(data); err != nil {
		m.logger.Warn("failed to persist conversation history", "error", err)
	}
}
