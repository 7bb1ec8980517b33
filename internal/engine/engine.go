// Package engine drives a text-generation backend through a bounded greedy
// decode loop. One Engine owns one backend session; calls are strictly
// serialized by the caller (at most one generation in flight).
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/runassist/planner/internal/backend"
)

// Error taxonomy. Backend and infrastructure faults surface as errors;
// unusable generated text does not (that is the extractor's problem).
var (
	// ErrInit reports that backend initialization failed. Fatal per
	// instance: no plan can be produced until Init succeeds.
	ErrInit = errors.New("engine: initialization failed")

	// ErrNotInitialized reports a Generate call before Init or after
	// Shutdown.
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrEncode reports that prompt tokenization failed persistently.
	ErrEncode = errors.New("engine: prompt encoding failed")

	// ErrContextOverflow reports a prompt that already fills the context
	// window. Raised before any backend evaluation.
	ErrContextOverflow = errors.New("engine: prompt too long for context")

	// ErrDecode reports a backend evaluation failure mid-generation. The
	// accumulated partial text is discarded.
	ErrDecode = errors.New("engine: decode failed")
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateGenerating
	stateClosed
)

// pieceBufSize is the initial detokenization buffer. Pieces longer than this
// trigger exactly one retry with an exactly sized buffer.
const pieceBufSize = 512

// Engine holds the generation session: backend handle, token positions, and
// lifecycle state. Not safe for concurrent use.
type Engine struct {
	be      backend.Backend
	session backend.Session
	state   state
}

// New creates an Engine over the given backend. The engine stays
// Uninitialized until Init succeeds.
func New(be backend.Backend) *Engine {
	return &Engine{be: be}
}

// Init opens the backend session. Idempotent once Ready. On failure the
// engine stays Uninitialized and any partially acquired resource is
// released before returning.
func (e *Engine) Init(locator string, contextSize, accelLayers int) error {
	switch e.state {
	case stateReady, stateGenerating:
		return nil
	case stateClosed:
		return fmt.Errorf("%w: engine is shut down", ErrInit)
	}

	sess, err := e.be.Open(locator, backend.Options{
		ContextSize: contextSize,
		AccelLayers: accelLayers,
	})
	if err != nil {
		if sess != nil {
			sess.Close()
		}
		return fmt.Errorf("%w: open %q: %v", ErrInit, locator, err)
	}

	e.session = sess
	e.state = stateReady
	return nil
}

// Ready reports whether the engine can accept a Generate call.
func (e *Engine) Ready() bool {
	return e.state == stateReady
}

// Generate runs one bounded greedy decode over prompt and returns the
// accumulated text. Terminals: end-of-sequence token, the maxTokens budget,
// or context exhaustion (partial text returned, not an error). ctx is
// checked once per loop iteration; an in-flight backend evaluation is not
// interruptible.
func (e *Engine) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if e.state != stateReady {
		return "", fmt.Errorf("%w: state does not allow generation", ErrNotInitialized)
	}
	e.state = stateGenerating
	defer func() {
		if e.state == stateGenerating {
			e.state = stateReady
		}
	}()

	toks, err := e.tokenize(prompt)
	if err != nil {
		return "", err
	}

	if bos, ok := e.session.BOS(); ok && (len(toks) == 0 || toks[0] != bos) {
		toks = append([]backend.Token{bos}, toks...)
	}

	ctxSize := e.session.ContextSize()
	if len(toks) >= ctxSize {
		return "", fmt.Errorf("%w: %d tokens, window %d", ErrContextOverflow, len(toks), ctxSize)
	}

	// One full pass over the prompt, logits for the final position only.
	if err := e.session.Evaluate(toks, 0); err != nil {
		return "", fmt.Errorf("%w: prompt evaluation: %v", ErrDecode, err)
	}

	var out strings.Builder
	pbuf := make([]byte, pieceBufSize)
	eos, hasEOS := e.session.EOS()
	nPast := len(toks)

	for step := 0; step < maxTokens; step++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("generation canceled: %w", err)
		}

		logits := e.session.Logits()
		if len(logits) == 0 {
			break
		}

		tok := argmax(logits)
		if hasEOS && tok == eos {
			break
		}

		piece, err := e.piece(tok, pbuf)
		if err != nil {
			return "", err
		}
		out.WriteString(piece)

		if err := e.session.Evaluate([]backend.Token{tok}, nPast); err != nil {
			return "", fmt.Errorf("%w: token evaluation at position %d: %v", ErrDecode, nPast, err)
		}

		nPast++
		if nPast >= ctxSize-1 {
			// Context exhausted: non-error terminal, partial output stands.
			break
		}
	}

	return out.String(), nil
}

// Shutdown releases the backend session from any state. The engine is
// Closed afterwards; further Generate calls fail with ErrNotInitialized.
func (e *Engine) Shutdown() error {
	var err error
	if e.session != nil {
		err = e.session.Close()
		e.session = nil
	}
	e.state = stateClosed
	return err
}

// tokenize encodes the prompt, retrying exactly once with an exactly sized
// buffer when the first attempt comes back short.
func (e *Engine) tokenize(prompt string) ([]backend.Token, error) {
	buf := make([]backend.Token, len(prompt)+8)
	n, err := e.session.Tokenize(prompt, buf)
	if errors.Is(err, backend.ErrShortBuffer) {
		buf = make([]backend.Token, n)
		n, err = e.session.Tokenize(prompt, buf)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf[:n], nil
}

// piece detokenizes one token, retrying exactly once with an exactly sized
// buffer. Truncation is never silent.
func (e *Engine) piece(tok backend.Token, buf []byte) (string, error) {
	n, err := e.session.Piece(tok, buf)
	if errors.Is(err, backend.ErrShortBuffer) {
		exact := make([]byte, n)
		n, err = e.session.Piece(tok, exact)
		buf = exact
	}
	if err != nil {
		return "", fmt.Errorf("%w: detokenize token %d: %v", ErrDecode, tok, err)
	}
	return string(buf[:n]), nil
}

func argmax(logits []float32) backend.Token {
	best := 0
	v := logits[0]
	for i := 1; i < len(logits); i++ {
		if logits[i] > v {
			v = logits[i]
			best = i
		}
	}
	return backend.Token(best)
}
