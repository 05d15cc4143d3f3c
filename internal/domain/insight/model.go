package insight

import (
	"context"
	"time"
)

// Insight is a generated narrative over an account's recent costs and metrics
type Insight struct {
	AccountID       string    `json:"accountId"`
	Insights        string    `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	Concerns        []string  `json:"concerns"`
	Model           string    `json:"model"`
	Fallback        bool      `json:"fallback"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// Service generates insights for an account
type Service interface {
	Generate(ctx context.Context, accountID string) (*Insight, error)
}

// Completer sends a prompt to a language model and returns its reply
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}
