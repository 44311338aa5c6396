package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
)

// Provider renders documents sent to affiliates.
type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return nil, nil
}
