package ports

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
)

// PropertyLoader fetches the dynamic data of an async property.
// nodeName is the node type and methodName the property's loadMethod.
type PropertyLoader interface {
	Load(ctx context.Context, nodeName, methodName string, inputs map[string]any) (*domain.LoadResult, error)
}

// LoaderFunc adapts a function to PropertyLoader.
type LoaderFunc func(ctx context.Context, nodeName, methodName string, inputs map[string]any) (*domain.LoadResult, error)

func (f LoaderFunc) Load(ctx context.Context, nodeName, methodName string, inputs map[string]any) (*domain.LoadResult, error) {
	return f(ctx, nodeName, methodName, inputs)
}
