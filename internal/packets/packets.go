// Package packets defines the typed outputs handed between propagators.
package packets

import (
	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region packets

// ActivationPacket carries node or flow strengths.
type ActivationPacket struct {
	Mapping numdict.NumDict
}

// Decision is the intermediate result of a response-selection propagator.
type Decision struct {
	Mapping   numdict.NumDict
	Selection symbols.Set
}

// ResponsePacket carries response strengths plus the selected constructs.
type ResponsePacket struct {
	Mapping   numdict.NumDict
	Selection symbols.Set
}

// SubsystemPacket is the assembled output of a subsystem cycle.
type SubsystemPacket struct {
	Mapping   numdict.NumDict
	Decisions map[symbols.Symbol]ResponsePacket
}

// #endregion packets

// #region subsystem-data

// Member is one activation output feeding a subsystem packet, tagged by source.
type Member struct {
	Source symbols.Symbol
	Packet ActivationPacket
}

// SubsystemData is the intermediate result assembled by a subsystem cycle.
// Members are merged in slice order.
type SubsystemData struct {
	Members   []Member
	Decisions map[symbols.Symbol]ResponsePacket
}

// #endregion subsystem-data

// #region payload

// Payload returns the strength mapping carried by p, if p is a packet type.
func Payload(p any) (numdict.NumDict, bool) {
	switch v := p.(type) {
	case ActivationPacket:
		return v.Mapping, true
	case ResponsePacket:
		return v.Mapping, true
	case SubsystemPacket:
		return v.Mapping, true
	default:
		return numdict.NumDict{}, false
	}
}

// #endregion payload
