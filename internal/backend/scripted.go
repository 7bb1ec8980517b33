package backend

import (
	"errors"
	"fmt"
)

const (
	// DefaultContextSize is used when Options.ContextSize is not set.
	DefaultContextSize = 2048

	scriptedBOS   = Token(256)
	scriptedEOS   = Token(257)
	scriptedVocab = 258
)

// Scripted is an in-process backend that deterministically continues any
// prompt with a fixed reply, one byte-level token at a time, then emits EOS.
// It exists for development and tests; a real inference backend plugs in
// behind the same contract.
type Scripted struct {
	// Reply is the canned continuation emitted after the prompt.
	Reply string

	// OpenErr, when set, makes Open fail with this error.
	OpenErr error

	// FailEvalAt, when > 0, makes the Nth Evaluate call on the session fail.
	FailEvalAt int
}

// Open creates a scripted session. The locator must be non-empty to mimic a
// model-file lookup; there is nothing to load.
func (b *Scripted) Open(locator string, opts Options) (Session, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	if locator == "" {
		return nil, errors.New("scripted: empty model locator")
	}

	ctxSize := opts.ContextSize
	if ctxSize <= 0 {
		ctxSize = DefaultContextSize
	}

	return &scriptedSession{
		reply:      []byte(b.Reply),
		ctxSize:    ctxSize,
		failEvalAt: b.FailEvalAt,
		logits:     make([]float32, scriptedVocab),
	}, nil
}

type scriptedSession struct {
	reply      []byte
	ctxSize    int
	logits     []float32
	emitIdx    int // reply bytes scripted so far
	evalCalls  int
	failEvalAt int
	closed     bool
}

func (s *scriptedSession) Tokenize(text string, dst []Token) (int, error) {
	need := len(text)
	if need > len(dst) {
		return need, ShortBufferError(need)
	}
	for i := 0; i < need; i++ {
		dst[i] = Token(text[i])
	}
	return need, nil
}

func (s *scriptedSession) Piece(tok Token, dst []byte) (int, error) {
	if tok == scriptedBOS || tok == scriptedEOS {
		return 0, nil
	}
	if tok < 0 || tok > 255 {
		return 0, fmt.Errorf("scripted: token %d outside vocabulary", tok)
	}
	if len(dst) < 1 {
		return 1, ShortBufferError(1)
	}
	dst[0] = byte(tok)
	return 1, nil
}

func (s *scriptedSession) Evaluate(tokens []Token, startPos int) error {
	if s.closed {
		return errors.New("scripted: session closed")
	}
	s.evalCalls++
	if s.failEvalAt > 0 && s.evalCalls >= s.failEvalAt {
		return errors.New("scripted: injected evaluation failure")
	}
	if len(tokens) == 0 {
		return errors.New("scripted: empty batch")
	}

	if startPos == 0 {
		// Full prompt pass: the script starts over.
		s.emitIdx = 0
	} else {
		s.emitIdx++
	}

	next := scriptedEOS
	if s.emitIdx < len(s.reply) {
		next = Token(s.reply[s.emitIdx])
	}
	for i := range s.logits {
		s.logits[i] = 0
	}
	s.logits[next] = 1
	return nil
}

func (s *scriptedSession) Logits() []float32 { return s.logits }

func (s *scriptedSession) ContextSize() int { return s.ctxSize }

func (s *scriptedSession) VocabSize() int { return scriptedVocab }

func (s *scriptedSession) BOS() (Token, bool) { return scriptedBOS, true }

func (s *scriptedSession) EOS() (Token, bool) { return scriptedEOS, true }

func (s *scriptedSession) Close() error {
	s.closed = true
	return nil
}

// Ensure Scripted implements the Backend interface.
var _ Backend = (*Scripted)(nil)
