package voice

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/inference"
	"github.com/openclaw/voicehub/pkg/tts"
)

// orderSink records the order frames arrive; frames carry a marker
// sample so tests can match them back to sentences.
func testPipeline(t *testing.T, chain *inference.Chain, engine tts.Engine, hooks Hooks) (*Pipeline, *audioio.MockSink) {
	t.Helper()
	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	cfg := Config{RecvTimeout: 50 * time.Millisecond}
	return NewPipeline(chain, engine, sink, cfg, hooks, nil), sink
}

func chainOf(t *testing.T, providers ...inference.Provider) *inference.Chain {
	t.Helper()
	chain, err := inference.NewChain(providers...)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}
	return chain
}

func connectRefused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRunSpeaksSentencesInOrder(t *testing.T) {
	// Token fragments that assemble into three sentences.
	provider := inference.NewMock("mock",
		"First sen", "tence here. Sec", "ond one. ", "And a third",
	)
	engine := tts.NewMockEngine()
	p, sink := testPipeline(t, chainOf(t, provider), engine, Hooks{})

	result, err := p.Run(context.Background(), []inference.Message{
		inference.NewUserMessage("speak"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantSentences := []string{"First sentence here.", "Second one.", "And a third"}
	if got := engine.Calls(); len(got) != len(wantSentences) {
		t.Fatalf("synthesized %d sentences %v, want %d", len(got), got, len(wantSentences))
	} else {
		for i, want := range wantSentences {
			if got[i] != want {
				t.Errorf("sentence %d = %q, want %q", i, got[i], want)
			}
		}
	}

	// Playback order matches emission order: frame lengths are
	// text-proportional in the mock engine.
	written := sink.Written()
	if len(written) != len(wantSentences) {
		t.Fatalf("played %d buffers, want %d", len(written), len(wantSentences))
	}

	if result.Text != "First sentence here. Second one. And a third" {
		t.Errorf("accumulated text = %q", result.Text)
	}
	if result.Errored || result.Interrupted || result.Route != nil {
		t.Errorf("unexpected result flags: %+v", result)
	}
}

func TestRunFailover(t *testing.T) {
	primary := inference.WithError("primary", connectRefused())
	fallback := inference.NewMock("fallback", "Hello from the backup.")
	chain := chainOf(t, primary, fallback)

	var failovers int
	var mu sync.Mutex
	chain.OnFailover(func(provider string, err error) {
		mu.Lock()
		failovers++
		mu.Unlock()
	})

	engine := tts.NewMockEngine()
	p, _ := testPipeline(t, chain, engine, Hooks{})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Errored {
		t.Error("run errored despite a working fallback")
	}
	if result.Text != "Hello from the backup." {
		t.Errorf("text = %q", result.Text)
	}
	mu.Lock()
	if failovers != 1 {
		t.Errorf("failovers = %d, want exactly 1", failovers)
	}
	mu.Unlock()
}

func TestRunMidStreamFailureAdvancesChain(t *testing.T) {
	// The primary opens a stream, yields a partial token, then breaks.
	// The chain resumes at the fallback and the partial fragment never
	// reaches the accumulated result.
	primary := &inference.Mock{
		NameValue: "primary",
		StreamFunc: func(ctx context.Context, req *inference.ChatRequest) (inference.Stream, error) {
			return inference.NewBrokenMockStream(errors.New("connection reset by peer"), "Starting to answ"), nil
		},
	}
	fallback := inference.NewMock("fallback", "Hello from the backup.")
	chain := chainOf(t, primary, fallback)

	var failovers int
	var mu sync.Mutex
	chain.OnFailover(func(provider string, err error) {
		mu.Lock()
		failovers++
		mu.Unlock()
	})

	engine := tts.NewMockEngine()
	p, _ := testPipeline(t, chain, engine, Hooks{})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Errored {
		t.Error("run errored despite a working fallback")
	}
	if result.Text != "Hello from the backup." {
		t.Errorf("text = %q, want only the fallback reply", result.Text)
	}
	if got := fallback.CallCount("Stream"); got != 1 {
		t.Errorf("fallback Stream called %d times, want 1", got)
	}
	mu.Lock()
	if failovers != 1 {
		t.Errorf("failovers = %d, want exactly 1", failovers)
	}
	mu.Unlock()

	calls := engine.Calls()
	if len(calls) != 1 || calls[0] != "Hello from the backup." {
		t.Errorf("spoken = %v, want only the fallback reply", calls)
	}
}

func TestRunMidStreamFailureOnLastProviderErrors(t *testing.T) {
	only := &inference.Mock{
		NameValue: "only",
		StreamFunc: func(ctx context.Context, req *inference.ChatRequest) (inference.Stream, error) {
			return inference.NewBrokenMockStream(errors.New("connection reset by peer"), "First part done. And th"), nil
		},
	}

	var exhaustions int
	engine := tts.NewMockEngine()
	p, _ := testPipeline(t, chainOf(t, only), engine, Hooks{
		OnExhaustion: func() { exhaustions++ },
	})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Errored {
		t.Error("run with no remaining providers must be marked errored")
	}
	if exhaustions != 1 {
		t.Errorf("exhaustion hook fired %d times, want 1", exhaustions)
	}
	if strings.Contains(result.Text, "And th") {
		t.Errorf("text = %q, broken fragment must be dropped", result.Text)
	}

	calls := engine.Calls()
	if len(calls) == 0 || calls[len(calls)-1] != DefaultApology {
		t.Errorf("spoken = %v, want the apology last", calls)
	}
}

func TestRunExhaustionSpeaksApology(t *testing.T) {
	chain := chainOf(t,
		inference.WithError("a", connectRefused()),
		inference.WithError("b", connectRefused()),
	)
	engine := tts.NewMockEngine()

	var exhaustions int
	p, _ := testPipeline(t, chain, engine, Hooks{
		OnExhaustion: func() { exhaustions++ },
	})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Errored {
		t.Error("exhausted run must be marked errored")
	}
	if exhaustions != 1 {
		t.Errorf("exhaustion hook fired %d times, want 1", exhaustions)
	}

	calls := engine.Calls()
	if len(calls) != 1 || calls[0] != DefaultApology {
		t.Errorf("spoken = %v, want exactly the apology", calls)
	}
}

func TestRunRouteDetection(t *testing.T) {
	provider := inference.NewMock("mock",
		"[ROUTE:deal", "-scanner] find me a laundromat",
	)
	engine := tts.NewMockEngine()
	p, sink := testPipeline(t, chainOf(t, provider), engine, Hooks{})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Route == nil {
		t.Fatal("routing marker not detected")
	}
	if result.Route.AgentID != "deal-scanner" {
		t.Errorf("agent id = %q, want deal-scanner", result.Route.AgentID)
	}
	if result.Route.Query != "find me a laundromat" {
		t.Errorf("refined query = %q", result.Route.Query)
	}

	// Zero sentences reach synthesis before detection.
	if calls := engine.Calls(); len(calls) != 0 {
		t.Errorf("synthesized %v before route detection", calls)
	}
	if len(sink.Written()) != 0 {
		t.Error("audio played for a routed run")
	}
}

func TestRunRouteWindowExceeded(t *testing.T) {
	// The marker arrives after more than window+grace characters of
	// ordinary text, so it is spoken rather than routed.
	padding := strings.Repeat("Filler words here. ", 8) // >100 chars
	provider := inference.NewMock("mock", padding, "[ROUTE:late-agent] too late")
	engine := tts.NewMockEngine()
	p, _ := testPipeline(t, chainOf(t, provider), engine, Hooks{})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Route != nil {
		t.Error("late marker must not trigger routing")
	}

	var spoken string
	for _, s := range engine.Calls() {
		spoken += s + " "
	}
	if !strings.Contains(spoken, "late-agent") {
		t.Error("late marker should fall through to ordinary speech")
	}
}

func TestRunSynthesisFailureSkipsSentence(t *testing.T) {
	provider := inference.NewMock("mock", "Good one. Bad one. Another good one.")
	engine := tts.NewMockEngine()
	engine.FailFor = map[string]error{"Bad one.": errors.New("voice model crashed")}

	var failures int
	p, sink := testPipeline(t, chainOf(t, provider), engine, Hooks{
		OnSynthesisFailure: func() { failures++ },
	})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if failures != 1 {
		t.Errorf("synthesis failure hook fired %d times, want 1", failures)
	}
	if len(sink.Written()) != 2 {
		t.Errorf("played %d buffers, want 2 (failed sentence skipped)", len(sink.Written()))
	}
	// The failed sentence still appears in the accumulated text.
	if !strings.Contains(result.Text, "Bad one.") {
		t.Error("accumulated text must include the unspoken sentence")
	}
}

func TestInterruptStopsPlayback(t *testing.T) {
	// Many sentences with slow playback, interrupted partway through.
	text := ""
	for i := 0; i < 10; i++ {
		text += "This is a sentence. "
	}
	provider := inference.NewMock("mock", text)
	engine := tts.NewMockEngine()

	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	sink.PlayDelay = 30 * time.Millisecond

	var interrupts int
	var mu sync.Mutex
	cfg := Config{RecvTimeout: 50 * time.Millisecond}
	p := NewPipeline(chainOf(t, provider), engine, sink, cfg, Hooks{
		OnInterrupt: func() { mu.Lock(); interrupts++; mu.Unlock() },
	}, nil)

	done := make(chan *Result, 1)
	go func() {
		result, _ := p.Run(context.Background(), nil)
		done <- result
	}()

	// Let a couple of sentences play, then interrupt twice (idempotent).
	time.Sleep(80 * time.Millisecond)
	p.Interrupt()
	p.Interrupt()

	var result *Result
	select {
	case result = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not unwind after interrupt")
	}

	if !result.Interrupted {
		t.Error("result not marked interrupted")
	}
	if played := len(sink.Written()); played >= 10 {
		t.Errorf("all %d buffers played despite interrupt", played)
	}
	if sink.ClearCount() == 0 {
		t.Error("interrupt must clear buffered playback")
	}
	mu.Lock()
	if interrupts != 1 {
		t.Errorf("interrupt hook fired %d times, want 1 (idempotent)", interrupts)
	}
	mu.Unlock()
}

func TestInterruptWithoutActiveRun(t *testing.T) {
	engine := tts.NewMockEngine()
	p, _ := testPipeline(t, chainOf(t, inference.NewMock("mock", "hi")), engine, Hooks{})
	p.Interrupt() // must not panic
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantID    string
		wantQuery string
		wantOK    bool
	}{
		{
			name:      "plain marker",
			input:     "[ROUTE:deal-scanner] find me a laundromat",
			wantID:    "deal-scanner",
			wantQuery: "find me a laundromat",
			wantOK:    true,
		},
		{
			name:      "leading whitespace",
			input:     "  [ROUTE:helper] do the thing",
			wantID:    "helper",
			wantQuery: "do the thing",
			wantOK:    true,
		},
		{
			name:   "no marker",
			input:  "just a normal reply",
			wantOK: false,
		},
		{
			name:   "marker not at start",
			input:  "sure! [ROUTE:helper] ok",
			wantOK: false,
		},
		{
			name:      "trailing whitespace trimmed from query",
			input:     "[ROUTE:helper] do the thing \n",
			wantID:    "helper",
			wantQuery: "do the thing",
			wantOK:    true,
		},
		{
			name:      "empty query",
			input:     "[ROUTE:helper]",
			wantID:    "helper",
			wantQuery: "",
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, ok := ParseRoute(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseRoute() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if route.AgentID != tt.wantID {
				t.Errorf("AgentID = %q, want %q", route.AgentID, tt.wantID)
			}
			if route.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", route.Query, tt.wantQuery)
			}
		})
	}
}
