// Strategies settle merge conflicts without manual intervention:
// - Manual: leave conflicts for the caller (default)
// - Ours: always keep the target branch version
// - Theirs: always accept the source branch version
// - Base: revert to the common ancestor version
package diffmerge

import (
	"errors"
	"fmt"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// StrategyType represents the type of merge strategy.
type StrategyType string

const (
	StrategyManual StrategyType = "manual" // Report conflicts (default)
	StrategyOurs   StrategyType = "ours"   // Keep target branch version
	StrategyTheirs StrategyType = "theirs" // Accept source branch version
	StrategyBase   StrategyType = "base"   // Revert to common ancestor
)

// Strategy defines the interface for conflict resolution strategies.
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Resolve settles a conflict. ok=false leaves the conflict unresolved; a nil
	// version with ok=true deletes the path.
	Resolve(c Conflict) (resolution *Version, ok bool)
}

// ManualStrategy never resolves anything.
type ManualStrategy struct{}

func (s *ManualStrategy) Name() string {
	return string(StrategyManual)
}

func (s *ManualStrategy) Resolve(Conflict) (*Version, bool) {
	return nil, false
}

// OursStrategy always keeps the target version, deletion included.
type OursStrategy struct{}

func (s *OursStrategy) Name() string {
	return string(StrategyOurs)
}

func (s *OursStrategy) Resolve(c Conflict) (*Version, bool) {
	return c.Target, true
}

// TheirsStrategy always accepts the source version, deletion included.
type TheirsStrategy struct{}

func (s *TheirsStrategy) Name() string {
	return string(StrategyTheirs)
}

func (s *TheirsStrategy) Resolve(c Conflict) (*Version, bool) {
	return c.Source, true
}

// BaseStrategy reverts conflicted paths to the common ancestor.
type BaseStrategy struct{}

func (s *BaseStrategy) Name() string {
	return string(StrategyBase)
}

func (s *BaseStrategy) Resolve(c Conflict) (*Version, bool) {
	return c.Base, true
}

// StrategyResolver manages strategy selection.
type StrategyResolver struct {
	strategies map[StrategyType]Strategy
}

// NewStrategyResolver creates a resolver knowing every built-in strategy.
func NewStrategyResolver() *StrategyResolver {
	return &StrategyResolver{
		strategies: map[StrategyType]Strategy{
			StrategyManual: &ManualStrategy{},
			StrategyOurs:   &OursStrategy{},
			StrategyTheirs: &TheirsStrategy{},
			StrategyBase:   &BaseStrategy{},
		},
	}
}

// GetStrategy returns a strategy by type. The empty type means manual.
func (sr *StrategyResolver) GetStrategy(strategyType StrategyType) (Strategy, error) {
	if strategyType == "" {
		strategyType = StrategyManual
	}
	strategy, exists := sr.strategies[strategyType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategyType)
	}
	return strategy, nil
}

// ParseStrategy validates a strategy name given on the command line.
func ParseStrategy(name string) (StrategyType, error) {
	st := StrategyType(name)
	if _, err := NewStrategyResolver().GetStrategy(st); err != nil {
		return "", err
	}
	if st == "" {
		st = StrategyManual
	}
	return st, nil
}
