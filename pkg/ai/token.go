package ai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultPricePer1k is used when the pricing table has no entry for a model.
const DefaultPricePer1k = 0.0005

// CountTokens returns the number of tokens in a string for a specific model.
// Unknown models fall back to the cl100k_base encoding.
func CountTokens(model string, text string) (int, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, fmt.Errorf("loading token encoding: %w", err)
		}
	}

	tokenIds := tkm.Encode(text, nil, nil)
	return len(tokenIds), nil
}

// EstimateCost prices tokens with the per-1k-token rate configured for model.
func EstimateCost(tokens int, model string, pricing map[string]float64) float64 {
	pricePer1k := DefaultPricePer1k
	if p, ok := pricing[model]; ok {
		pricePer1k = p
	}
	return (float64(tokens) / 1000.0) * pricePer1k
}
