package ports

import "context"

// Generator is the external text-generation service. Implementations may be
// slow, may fail, and may ignore ctx; callers bound the wait themselves.
type Generator interface {
	Generate(ctx context.Context, systemText, userText string, maxOutputLength int) (string, error)
}
