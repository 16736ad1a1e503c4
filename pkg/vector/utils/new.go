// Package vectorutils is the vector store utility package
package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/vector"
	"github.com/papercomputeco/docent/pkg/vector/inmemory"
	"github.com/papercomputeco/docent/pkg/vector/pgvector"
	"github.com/papercomputeco/docent/pkg/vector/qdrantvec"
	"github.com/papercomputeco/docent/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	Target       string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrantvec.NewDriver(ctx, qdrantvec.Config{
			Target:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
