package memory

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAddAndTrim(t *testing.T) {
	m := New(3)

	// 3 pairs fill the cap (2*3 = 6 entries), one more pair evicts the oldest.
	for i := 0; i < 4; i++ {
		m.AddUser("question")
		m.AddAssistant("answer")
	}

	turns := m.Turns()
	if len(turns) != 6 {
		t.Fatalf("expected 6 turns after trim, got %d", len(turns))
	}
	if turns[0].Role != RoleUser {
		t.Errorf("expected oldest pair evicted whole, first turn role = %s", turns[0].Role)
	}
}

func TestMessagesIncludesPreamble(t *testing.T) {
	m := New(5, WithPreamble("You are a helpful assistant."))
	m.AddUser("hello")

	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("expected system preamble first, got %s", msgs[0].Role)
	}
	if msgs[1].Content != "hello" {
		t.Errorf("expected user turn, got %q", msgs[1].Content)
	}
}

func TestClear(t *testing.T) {
	m := New(5)
	m.AddUser("hello")
	m.AddAssistant("hi")

	m.Clear()

	if m.Len() != 0 {
		t.Errorf("expected empty history, got %d turns", m.Len())
	}
}

func TestForgetLastRemovesPair(t *testing.T) {
	m := New(5)
	m.AddUser("first")
	m.AddAssistant("first reply")
	m.AddUser("second")
	m.AddAssistant("second reply")

	m.ForgetLast()

	turns := m.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Content != "first reply" {
		t.Errorf("wrong remaining turn: %q", turns[1].Content)
	}
}

func TestForgetLastAfterErroredTurn(t *testing.T) {
	// A user turn with no assistant reply: only the user turn goes.
	m := New(5)
	m.AddUser("first")
	m.AddAssistant("first reply")
	m.AddUser("failed question")

	m.ForgetLast()

	turns := m.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Role != RoleAssistant {
		t.Errorf("expected trailing assistant turn preserved, got %s", turns[1].Role)
	}
}

func TestForgetLastEmpty(t *testing.T) {
	m := New(5)
	m.ForgetLast() // must not panic
	if m.Len() != 0 {
		t.Errorf("expected empty history, got %d turns", m.Len())
	}
}

func TestLastUserAndAssistant(t *testing.T) {
	m := New(5)

	if _, ok := m.LastUser(); ok {
		t.Error("LastUser() reported a turn on empty history")
	}

	m.AddUser("one")
	m.AddAssistant("two")
	m.AddUser("three")

	if got, _ := m.LastUser(); got != "three" {
		t.Errorf("LastUser() = %q, want %q", got, "three")
	}
	if got, _ := m.LastAssistant(); got != "two" {
		t.Errorf("LastAssistant() = %q, want %q", got, "two")
	}
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.json")

	m := New(5, WithFile(path))
	m.AddUser("hello")
	m.AddAssistant("hi there")

	// Document shape: {lastUpdated, turns}.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("history file not written: %v", err)
	}
	var doc struct {
		LastUpdated string `json:"lastUpdated"`
		Turns       []Turn `json:"turns"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid history document: %v", err)
	}
	if doc.LastUpdated == "" {
		t.Error("lastUpdated missing from document")
	}
	if len(doc.Turns) != 2 {
		t.Errorf("expected 2 persisted turns, got %d", len(doc.Turns))
	}

	// A fresh Memory over the same file picks up the history.
	m2 := New(5, WithFile(path))
	if m2.Len() != 2 {
		t.Errorf("expected 2 turns after reload, got %d", m2.Len())
	}
	if got, _ := m2.LastAssistant(); got != "hi there" {
		t.Errorf("LastAssistant() after reload = %q", got)
	}
}

type failingStore struct{}

func (failingStore) Save([]byte) error   { return errors.New("disk full") }
func (failingStore) Load() ([]byte, error) { return nil, nil }
func (failingStore) Close() error        { return nil }

func TestPersistFailureNonFatal(t *testing.T) {
	m := New(5, WithStore(failingStore{}))

	m.AddUser("hello") // must not panic or lose the turn

	if m.Len() != 1 {
		t.Errorf("in-memory state lost on persist failure: %d turns", m.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "conversation.json")
	m := New(5, WithFile(path))
	if m.Len() != 0 {
		t.Errorf("expected empty history, got %d turns", m.Len())
	}
}
