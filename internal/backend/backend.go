// Package backend defines the contract between the plan generation engine
// and a local text-generation backend. The backend itself (tokenizer tables,
// weights, matrix math) stays opaque; the engine drives it through Session.
package backend

import (
	"errors"
	"fmt"
)

// Token is an integer id for a sub-word unit in the backend's vocabulary.
type Token int32

// Options configures how a backend session is opened.
type Options struct {
	// ContextSize is the maximum combined prompt+generated token capacity.
	ContextSize int

	// AccelLayers is the number of layers to offload to an accelerator
	// (0 = CPU only).
	AccelLayers int
}

// ErrShortBuffer reports that a destination buffer was too small. The
// returned count carries the required size so the caller can retry once
// with an exactly sized buffer.
var ErrShortBuffer = errors.New("backend: buffer too small")

// Backend opens inference sessions for a model locator (typically a model
// file path). Implementations acquire all resources in Open and must release
// any partially acquired state before returning an error.
type Backend interface {
	Open(locator string, opts Options) (Session, error)
}

// Session is an exclusively owned handle on a loaded model. It is not safe
// for concurrent use; callers serialize access (one generation in flight).
type Session interface {
	// Tokenize encodes text into dst and returns the token count. If dst is
	// too small it returns the required count and an error wrapping
	// ErrShortBuffer; the encoding itself is unchanged on retry.
	Tokenize(text string, dst []Token) (int, error)

	// Piece decodes a single token into dst and returns the byte length.
	// If dst is too small it returns the required length and an error
	// wrapping ErrShortBuffer. Never truncates silently.
	Piece(tok Token, dst []byte) (int, error)

	// Evaluate submits tokens at sequential positions starting at startPos
	// for one evaluation pass. Logits are produced for the final submitted
	// position only.
	Evaluate(tokens []Token, startPos int) error

	// Logits returns the logit vector for the last evaluated position.
	// The slice is owned by the session and valid until the next Evaluate.
	Logits() []float32

	// ContextSize reports the session's context window in tokens.
	ContextSize() int

	// VocabSize reports the vocabulary size (length of the logit vector).
	VocabSize() int

	// BOS returns the beginning-of-sequence token, if the model defines one.
	BOS() (Token, bool)

	// EOS returns the end-of-sequence token, if the model defines one.
	EOS() (Token, bool)

	// Close releases all backend resources. Safe to call more than once.
	Close() error
}

// ShortBufferError wraps ErrShortBuffer with the required size.
func ShortBufferError(needed int) error {
	return fmt.Errorf("%w: need %d", ErrShortBuffer, needed)
}
