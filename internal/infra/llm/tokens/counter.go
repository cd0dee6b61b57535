package tokens

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

type encodingLoader func(model string) (*tiktoken.Tiktoken, error)

// Counter estimates token counts for prompts and completions. The encoding is
// fetched in the background; until it is available, or when it cannot be
// loaded, counts are approximated from the text length.
type Counter struct {
	model  string
	logger *slog.Logger

	enc   atomic.Pointer[tiktoken.Tiktoken]
	ready chan struct{}
}

// NewCounter constructs a counter for the given model name and starts loading
// its encoding. Provider prefixes such as "openai/" are ignored.
func NewCounter(model string, logger *slog.Logger) *Counter {
	return newCounter(model, logger, loadEncoding)
}

func newCounter(model string, logger *slog.Logger, load encodingLoader) *Counter {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}
	c := &Counter{
		model:  model,
		logger: logger.With("component", "llm.tokens"),
		ready:  make(chan struct{}),
	}
	go c.load(load)
	return c
}

// Count returns the number of tokens in text. It never waits for the encoding.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	enc := c.enc.Load()
	if enc == nil {
		return approximate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Wait blocks until the encoding load finishes or ctx ends, and reports
// whether exact counts are available.
func (c *Counter) Wait(ctx context.Context) bool {
	select {
	case <-c.ready:
		return c.enc.Load() != nil
	case <-ctx.Done():
		return false
	}
}

func (c *Counter) load(load encodingLoader) {
	defer close(c.ready)
	enc, err := load(c.model)
	if err != nil {
		c.logger.Warn("tokenizer unavailable, approximating token counts", "model", c.model, "error", err)
		return
	}
	c.enc.Store(enc)
}

func loadEncoding(model string) (*tiktoken.Tiktoken, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}

// approximate uses the rule of thumb of four bytes per token.
func approximate(text string) int {
	n := (len(text) + 3) / 4
	if words := len(strings.Fields(text)); words > n {
		return words
	}
	return n
}
