package services

import "strings"

// ModelPrice is USD per million tokens.
type ModelPrice struct {
	Prefix string
	Input  float64
	Output float64
}

// Prices are matched by model name prefix, first match wins.
var Prices = []ModelPrice{
	{Prefix: "claude-opus-4", Input: 15, Output: 75},
	{Prefix: "claude-sonnet-4", Input: 3, Output: 15},
	{Prefix: "claude-3-5-haiku", Input: 0.8, Output: 4},
	{Prefix: "claude-haiku", Input: 0.8, Output: 4},
	{Prefix: "gemini-2.5-pro", Input: 1.25, Output: 10},
	{Prefix: "gemini-2.5-flash", Input: 0.30, Output: 2.50},
}

// DefaultPrice applies to models missing from Prices.
var DefaultPrice = ModelPrice{Prefix: "default", Input: 3, Output: 15}

func PriceFor(model string) ModelPrice {
	for _, p := range Prices {
		if strings.HasPrefix(model, p.Prefix) {
			return p
		}
	}
	return DefaultPrice
}

// Cost returns the USD cost of a completion. Negative counts are treated as zero.
func Cost(model string, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	p := PriceFor(model)
	return (float64(inputTokens)*p.Input + float64(outputTokens)*p.Output) / 1_000_000
}
