package ai

import "context"

// Provider defines the interface for AI insight backends.
type Provider interface {
	Name() string

	// GenerateInsight turns a plain-text attendance report into a short
	// narrative summary for operators.
	GenerateInsight(ctx context.Context, report string) (string, error)
}
