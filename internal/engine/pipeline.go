package engine

// Pipeline is a named, independently-configured sequence of phase-scoped
// module chains. Pipelines are defined once at configuration time and are
// immutable afterwards; only their per-pass output document sets change.
type Pipeline struct {
	name         string
	deps         []string
	isolated     bool
	alwaysListed bool
	phases       map[Phase][]Module
}

// PipelineOption configures a pipeline at construction time.
type PipelineOption func(*Pipeline)

// WithDependencies declares the pipelines this one depends on. A dependent
// pipeline begins phase N only after every dependency has completed phase N.
func WithDependencies(names ...string) PipelineOption {
	return func(p *Pipeline) {
		p.deps = append(p.deps, names...)
	}
}

// WithModules appends modules to the given phase's chain, in declared order.
func WithModules(phase Phase, modules ...Module) PipelineOption {
	return func(p *Pipeline) {
		p.phases[phase] = append(p.phases[phase], modules...)
	}
}

// Isolated excludes the pipeline from cross-pipeline phase synchronization.
// It runs its full phase sequence concurrently with everything else and can
// neither depend on nor be depended on by synchronized pipelines.
func Isolated() PipelineOption {
	return func(p *Pipeline) {
		p.isolated = true
	}
}

// AlwaysListed keeps the pipeline in dependency ordering even when it has no
// modules configured.
func AlwaysListed() PipelineOption {
	return func(p *Pipeline) {
		p.alwaysListed = true
	}
}

// NewPipeline creates an immutable pipeline definition.
func NewPipeline(name string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		name:   name,
		phases: make(map[Phase][]Module),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pipeline's unique name.
func (p *Pipeline) Name() string { return p.name }

// Dependencies returns the declared dependency pipeline names.
func (p *Pipeline) Dependencies() []string {
	deps := make([]string, len(p.deps))
	copy(deps, p.deps)
	return deps
}

// IsIsolated reports whether the pipeline is excluded from phase
// synchronization.
func (p *Pipeline) IsIsolated() bool { return p.isolated }

// IsAlwaysListed reports whether the pipeline participates in dependency
// ordering even with no modules.
func (p *Pipeline) IsAlwaysListed() bool { return p.alwaysListed }

// Modules returns the module chain for a phase, in declared order.
func (p *Pipeline) Modules(phase Phase) []Module {
	return p.phases[phase]
}

// HasModules reports whether any phase has at least one module.
func (p *Pipeline) HasModules() bool {
	for _, chain := range p.phases {
		if len(chain) > 0 {
			return true
		}
	}
	return false
}
