package spatialext

import (
	"fmt"
	"strings"
)

// StrategyFactory manages the registration and selection of toolchain
// strategies.
//
// # Usage
//
// Create a factory with the standard strategies:
//
//	factory := spatialext.NewStrategyFactory("")
//
// Or create an empty factory and register custom strategies:
//
//	factory := &spatialext.StrategyFactory{}
//	factory.Register(&MyStrategy{})
//
// # Strategy Selection
//
// StrategyFor searches the extracted tree for each registered strategy's
// sentinel in registration order and returns the first strategy whose
// sentinel is found, together with the build root it was found in.
//
// # Thread Safety
//
// StrategyFactory is NOT thread-safe for registration.
// Register all strategies before use.
type StrategyFactory struct {
	strategies []ToolchainStrategy
}

// NewStrategyFactory creates a factory with the standard strategies:
//  1. AutotoolsStrategy - autogen.sh
//  2. CMakeStrategy - CMakeLists.txt, optionally replaced by descriptor
//
// Autotools comes first so a tree shipping both descriptors builds with the
// autotools chain.
func NewStrategyFactory(cmakeDescriptor string) *StrategyFactory {
	factory := &StrategyFactory{}

	factory.Register(&AutotoolsStrategy{})
	factory.Register(&CMakeStrategy{Descriptor: cmakeDescriptor})

	return factory
}

// Register adds a new strategy to the factory.
//
// Strategies are checked in the order they are registered.
func (f *StrategyFactory) Register(strategy ToolchainStrategy) {
	f.strategies = append(f.strategies, strategy)
}

// ListStrategies returns a copy of all registered strategies.
func (f *StrategyFactory) ListStrategies() []ToolchainStrategy {
	return append([]ToolchainStrategy{}, f.strategies...)
}

// StrategyNamed returns the registered strategy whose name matches
// (case-insensitive), or an error naming the known strategies.
func (f *StrategyFactory) StrategyNamed(name string) (ToolchainStrategy, error) {
	var known []string
	for _, strategy := range f.strategies {
		if strings.EqualFold(strategy.Name(), name) {
			return strategy, nil
		}
		known = append(known, strings.ToLower(strategy.Name()))
	}
	return nil, fmt.Errorf("unknown toolchain %q (known: %s)", name, strings.Join(known, ", "))
}

// StrategyFor selects the strategy for the extracted tree and returns the
// build root holding its sentinel.
func (f *StrategyFactory) StrategyFor(tree string) (ToolchainStrategy, string, error) {
	var sentinels []string

	for _, strategy := range f.strategies {
		root, ok, err := locateRoot(strategy, tree)
		if err != nil {
			return nil, "", err
		}
		if ok {
			return strategy, root, nil
		}
		sentinels = append(sentinels, strategy.Sentinel())
	}

	return nil, "", discoveryError(strings.Join(sentinels, " or "), tree)
}
