package engine

import (
	"context"

	"git.home.luguber.info/inful/conveyor/internal/docmodel"
)

// Module is the atomic unit of processing: a transform from one document
// collection to another. Modules must be stateless across passes; any state
// they need travels in the documents or the execution context.
//
// The output collection fully replaces the input collection for the next
// module in the chain. There is no implicit accumulation.
type Module interface {
	// Name identifies the module in logs and error reports.
	Name() string

	// Execute transforms the input documents. Implementations should observe
	// ctx at suspension points and return its error on cancellation.
	Execute(ctx context.Context, ec *ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error)
}

// TransformFunc is the function form of a module transform.
type TransformFunc func(ctx context.Context, ec *ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error)

type funcModule struct {
	name string
	fn   TransformFunc
}

func (m *funcModule) Name() string { return m.name }

func (m *funcModule) Execute(ctx context.Context, ec *ExecContext, docs []*docmodel.Document) ([]*docmodel.Document, error) {
	return m.fn(ctx, ec, docs)
}

// ModuleFunc wraps a function as a named Module.
func ModuleFunc(name string, fn TransformFunc) Module {
	return &funcModule{name: name, fn: fn}
}
