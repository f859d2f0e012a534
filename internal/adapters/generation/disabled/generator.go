// Package disabled is the generator used when no backend is configured.
package disabled

import (
	"context"
	"errors"

	"github.com/bnema/ambient-narrator/internal/ports"
)

// ErrDisabled is returned by every call so the orchestrator falls back.
var ErrDisabled = errors.New("generation disabled")

type Generator struct{}

var _ ports.Generator = Generator{}

func (Generator) Generate(ctx context.Context, _, _ string, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrDisabled
}
