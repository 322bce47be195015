package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator estimates how many tokens a text costs.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator approximates tokens as characters divided by CharsPerToken.
type CharEstimator struct {
	CharsPerToken int
}

func (e CharEstimator) Estimate(text string) int {
	per := e.CharsPerToken
	if per <= 0 {
		per = 4
	}
	return len([]rune(text)) / per
}

// TiktokenEstimator counts tokens with the o200k_base encoding. When the
// encoding cannot be loaded it falls back to Fallback.
type TiktokenEstimator struct {
	Fallback TokenEstimator
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func loadEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("o200k_base")
	})
	return encoding, encodingErr
}

// CountTokens returns the o200k_base token count of text.
func CountTokens(text string) (int, error) {
	enc, err := loadEncoding()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (e TiktokenEstimator) Estimate(text string) int {
	n, err := CountTokens(text)
	if err != nil {
		fallback := e.Fallback
		if fallback == nil {
			fallback = CharEstimator{}
		}
		return fallback.Estimate(text)
	}
	return n
}

// NewTokenEstimator returns the estimator named by kind ("tiktoken" or
// "chars").
func NewTokenEstimator(kind string, charsPerToken int) TokenEstimator {
	chars := CharEstimator{CharsPerToken: charsPerToken}
	if kind == "tiktoken" {
		return TiktokenEstimator{Fallback: chars}
	}
	return chars
}
