package builder

import (
	"github.com/rs/zerolog"

	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Option configures a Builder.
type Option func(*config)

type config struct {
	name              string
	logger            zerolog.Logger
	elide             bool
	dropDeadCode      bool
	positionMode      srcpos.RecordingMode
	filterExpressions bool
	optimizerFactory  func(*register.Allocator) RegisterOptimizer
	returnPosition    int
	poolCapacity      int
	implicitReturn    bool
}

func defaultConfig() config {
	return config{
		logger:            zerolog.Nop(),
		elide:             true,
		positionMode:      srcpos.RecordSourcePositions,
		filterExpressions: true,
		returnPosition:    srcpos.NoSourcePosition,
		implicitReturn:    true,
	}
}

// WithName sets the name of the assembled Program.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithLogger sets the logger. Finalization is logged at debug level and
// elision and jump patching at trace level.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithElision enables or disables retraction of redundant instructions.
// It is enabled by default.
func WithElision(enabled bool) Option {
	return func(cfg *config) {
		cfg.elide = enabled
	}
}

// WithDeadCodeElimination controls whether instructions emitted after a
// return, throw or unconditional jump are discarded until the next label
// or handler mark. It is disabled by default.
func WithDeadCodeElimination(enabled bool) Option {
	return func(cfg *config) {
		cfg.dropDeadCode = enabled
	}
}

// WithSourcePositions selects whether a source position table is built.
func WithSourcePositions(mode srcpos.RecordingMode) Option {
	return func(cfg *config) {
		cfg.positionMode = mode
	}
}

// WithExpressionPositionFiltering controls whether expression positions
// are held back until an instruction that can observe them is emitted.
// It is enabled by default.
func WithExpressionPositionFiltering(enabled bool) Option {
	return func(cfg *config) {
		cfg.filterExpressions = enabled
	}
}

// WithRegisterOptimizer installs a register optimizer. The factory is
// called with the builder's allocator.
func WithRegisterOptimizer(factory func(*register.Allocator) RegisterOptimizer) Option {
	return func(cfg *config) {
		cfg.optimizerFactory = factory
	}
}

// WithReturnPosition sets the statement position attached to every
// Return.
func WithReturnPosition(pos int) Option {
	return func(cfg *config) {
		cfg.returnPosition = pos
	}
}

// WithConstantPoolCapacity limits the number of constant pool entries.
func WithConstantPoolCapacity(n int) Option {
	return func(cfg *config) {
		cfg.poolCapacity = n
	}
}

// WithImplicitReturn controls whether Finalize appends a return of
// undefined when control can fall off the end of the function. It is
// enabled by default.
func WithImplicitReturn(enabled bool) Option {
	return func(cfg *config) {
		cfg.implicitReturn = enabled
	}
}
