package util

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

func encodingFor(model string) *tiktoken.Tiktoken {
	cacheMu.RLock()
	enc, ok := encodingCache[model]
	cacheMu.RUnlock()

	if ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Non-OpenAI models get the GPT-4 encoding as an approximation.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}

	cacheMu.Lock()
	encodingCache[model] = enc
	cacheMu.Unlock()

	return enc
}

// CountTokens estimates the token count of text for a model. When no
// encoding can be loaded it falls back to four characters per token.
func CountTokens(model, text string) int {
	if text == "" {
		return 0
	}

	if enc := encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}

	n := len([]rune(text)) / 4
	if n == 0 {
		n = 1
	}

	return n
}
