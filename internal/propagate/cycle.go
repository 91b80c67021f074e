package propagate

import (
	"fmt"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region cycle-base

// CycleBase holds a container construct's member sequence and match predicate.
type CycleBase struct {
	Matches  symbols.MatchSpec
	sequence []symbols.Symbol
}

// NewCycleBase copies sequence so later edits by the caller do not leak in.
func NewCycleBase(sequence []symbols.Symbol, matches symbols.MatchSpec) CycleBase {
	return CycleBase{
		Matches:  matches,
		sequence: append([]symbols.Symbol(nil), sequence...),
	}
}

// Expects reports whether construct satisfies the match predicate.
func (c CycleBase) Expects(construct symbols.Symbol) bool {
	return c.Matches.Contains(construct)
}

// Sequence returns a copy of the member sequence.
func (c CycleBase) Sequence() []symbols.Symbol {
	return append([]symbols.Symbol(nil), c.sequence...)
}

// Output is empty for cycles that impose no assembly policy.
func (c CycleBase) Output() []symbols.ConstructType {
	return nil
}

// #endregion cycle-base

// #region subsystem

// SubsystemCycle assembles a SubsystemPacket from node and response members.
type SubsystemCycle struct {
	CycleBase
}

var _ Cycle[packets.SubsystemData, packets.SubsystemPacket] = (*SubsystemCycle)(nil)

// NewSubsystemCycle builds a subsystem cycle over sequence.
func NewSubsystemCycle(sequence []symbols.Symbol, matches symbols.MatchSpec) *SubsystemCycle {
	return &SubsystemCycle{CycleBase: NewCycleBase(sequence, matches)}
}

// Output declares the packet is assembled from node and response members.
func (*SubsystemCycle) Output() []symbols.ConstructType {
	return []symbols.ConstructType{symbols.NodeType, symbols.ResponseType}
}

// MakePacket union-merges member activations in order (later members win on
// key collisions) and attaches the per-member decisions.
func (*SubsystemCycle) MakePacket(data packets.SubsystemData) (packets.SubsystemPacket, error) {
	merged := numdict.NewMutable(0)
	for _, m := range data.Members {
		m.Packet.Mapping.Each(func(k symbols.Symbol, v float64) {
			merged.Set(k, v)
		})
	}

	decisions := make(map[symbols.Symbol]packets.ResponsePacket, len(data.Decisions))
	for k, v := range data.Decisions {
		decisions[k] = v
	}

	return packets.SubsystemPacket{
		Mapping:   merged.Freeze(),
		Decisions: decisions,
	}, nil
}

// #endregion subsystem

// #region agent

// AgentCycle is the top-level cycle. It is purely structural; all behavior
// lives in its sequence.
type AgentCycle struct {
	CycleBase
}

var _ Cycle[struct{}, struct{}] = (*AgentCycle)(nil)

// NewAgentCycle builds an agent cycle over sequence.
func NewAgentCycle(sequence []symbols.Symbol, matches symbols.MatchSpec) *AgentCycle {
	return &AgentCycle{CycleBase: NewCycleBase(sequence, matches)}
}

// MakePacket fails: agents assemble no packet.
func (*AgentCycle) MakePacket(struct{}) (struct{}, error) {
	return struct{}{}, fmt.Errorf("agent packet: %w", ErrNotImplemented)
}

// #endregion agent
