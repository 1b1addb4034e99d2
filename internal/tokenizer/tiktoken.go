package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultModel is used for encoding lookup when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Tiktoken counts tokens with the BPE vocabulary of an OpenAI model.
// The encoding is resolved on first use and reused afterwards.
type Tiktoken struct {
	model    string
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktoken returns a tokenizer for model. A non-empty encoding name
// (e.g. "cl100k_base") takes precedence over the model lookup.
func NewTiktoken(model, encoding string) *Tiktoken {
	if model == "" {
		model = DefaultModel
	}
	return &Tiktoken{model: model, encoding: encoding}
}

// Model returns the model whose vocabulary is used.
func (t *Tiktoken) Model() string { return t.model }

func (t *Tiktoken) load() (*tiktoken.Tiktoken, error) {
	t.once.Do(func() {
		if t.encoding != "" {
			t.enc, t.err = tiktoken.GetEncoding(t.encoding)
		} else {
			t.enc, t.err = tiktoken.EncodingForModel(t.model)
		}
		if t.err != nil {
			t.err = &TokenizationError{Model: t.model, Err: fmt.Errorf("resolve encoding: %w", t.err)}
		}
	})
	return t.enc, t.err
}

func (t *Tiktoken) Encode(text string) (ids []int, err error) {
	enc, err := t.load()
	if err != nil {
		return nil, err
	}
	defer func() {
		// tiktoken panics on disallowed special tokens.
		if r := recover(); r != nil {
			ids = nil
			err = &TokenizationError{Model: t.model, Err: fmt.Errorf("%v", r)}
		}
	}()
	return enc.Encode(text, nil, nil), nil
}

func (t *Tiktoken) Count(text string) (int, error) {
	ids, err := t.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
