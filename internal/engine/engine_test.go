package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/runassist/planner/internal/backend"
)

func TestEngine_GenerateGreedy(t *testing.T) {
	e := New(&backend.Scripted{Reply: "hello"})
	if err := e.Init("scripted:test", 2048, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	got, err := e.Generate(context.Background(), "some prompt", 32)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if !e.Ready() {
		t.Error("engine should be Ready again after generation")
	}
}

func TestEngine_TokenBudgetTerminal(t *testing.T) {
	e := New(&backend.Scripted{Reply: "abcdef"})
	if err := e.Init("scripted:test", 2048, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	// No EOS within budget: the loop must still terminate at maxTokens.
	got, err := e.Generate(context.Background(), "p", 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestEngine_ContextOverflowBeforeEval(t *testing.T) {
	cb := &countingBackend{inner: &backend.Scripted{Reply: "x"}}
	e := New(cb)
	if err := e.Init("scripted:test", 8, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	_, err := e.Generate(context.Background(), strings.Repeat("a", 10), 16)
	if !errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected ErrContextOverflow, got %v", err)
	}
	if cb.session.evalCalls != 0 {
		t.Errorf("backend evaluated %d times before the overflow check", cb.session.evalCalls)
	}
}

func TestEngine_ContextExhaustedPartial(t *testing.T) {
	e := New(&backend.Scripted{Reply: "wxyz"})
	// Prompt "ab" + BOS = 3 tokens; window 6 leaves room for two steps.
	if err := e.Init("scripted:test", 6, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	got, err := e.Generate(context.Background(), "ab", 100)
	if err != nil {
		t.Fatalf("context exhaustion is a non-error terminal, got %v", err)
	}
	if got != "wx" {
		t.Errorf("got %q, want partial %q", got, "wx")
	}
}

func TestEngine_DecodeErrorDiscardsPartial(t *testing.T) {
	// Prompt pass and the first token pass succeed; the second token pass
	// fails mid-generation.
	e := New(&backend.Scripted{Reply: "abcdef", FailEvalAt: 3})
	if err := e.Init("scripted:test", 2048, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	got, err := e.Generate(context.Background(), "p", 32)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if got != "" {
		t.Errorf("partial text must be discarded on decode failure, got %q", got)
	}
	if !e.Ready() {
		t.Error("engine should return to Ready after a failed generation")
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	e := New(&backend.Scripted{Reply: "x"})

	if _, err := e.Generate(context.Background(), "p", 4); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Generate before Init: got %v, want ErrNotInitialized", err)
	}

	if err := e.Init("scripted:test", 128, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Idempotent when already Ready.
	if err := e.Init("scripted:test", 128, 0); err != nil {
		t.Errorf("second Init: %v", err)
	}

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := e.Generate(context.Background(), "p", 4); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Generate after Shutdown: got %v, want ErrNotInitialized", err)
	}
	if err := e.Init("scripted:test", 128, 0); !errors.Is(err, ErrInit) {
		t.Errorf("Init after Shutdown: got %v, want ErrInit", err)
	}
}

func TestEngine_InitFailure(t *testing.T) {
	openErr := errors.New("missing model file")
	e := New(&backend.Scripted{OpenErr: openErr})

	err := e.Init("scripted:test", 128, 0)
	if !errors.Is(err, ErrInit) {
		t.Fatalf("expected ErrInit, got %v", err)
	}
	if e.Ready() {
		t.Error("engine must stay Uninitialized after a failed Init")
	}
}

func TestEngine_CanceledContext(t *testing.T) {
	e := New(&backend.Scripted{Reply: "abcdef"})
	if err := e.Init("scripted:test", 2048, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := e.Generate(ctx, "p", 32)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if got != "" {
		t.Errorf("partial text must be discarded on cancellation, got %q", got)
	}
}

// countingBackend wraps the scripted backend and counts Evaluate calls.
type countingBackend struct {
	inner   backend.Backend
	session *countingSession
}

func (b *countingBackend) Open(locator string, opts backend.Options) (backend.Session, error) {
	sess, err := b.inner.Open(locator, opts)
	if err != nil {
		return nil, err
	}
	b.session = &countingSession{Session: sess}
	return b.session, nil
}

type countingSession struct {
	backend.Session
	evalCalls int
}

func (s *countingSession) Evaluate(tokens []backend.Token, startPos int) error {
	s.evalCalls++
	return s.Session.Evaluate(tokens, startPos)
}
