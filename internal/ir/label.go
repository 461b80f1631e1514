package ir

import "fmt"

// PayloadKind distinguishes the four shapes a visible event's payload can
// take, per spec.md section 3.
type PayloadKind uint8

const (
	// PayloadNone marks an event carrying no payload segment, e.g. `a`.
	PayloadNone PayloadKind = iota
	// PayloadConst marks an event prefixed with a literal constant, e.g. `c.3`.
	PayloadConst
	// PayloadOutput marks an event whose payload was an output expression
	// already evaluated by the front-end, e.g. `c!x`.
	PayloadOutput
	// PayloadInput marks an event bound from an input position, e.g. `c?x`.
	PayloadInput
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNone:
		return "none"
	case PayloadConst:
		return "const"
	case PayloadOutput:
		return "output"
	case PayloadInput:
		return "input"
	default:
		return "unknown"
	}
}

// Label is either a visible event (channel + payload) or the silent
// symbol tau. Tau equals only tau; visible events admit equality and a
// total order by (channel, kind, value).
type Label struct {
	Tau     bool
	Channel string
	Kind    PayloadKind
	Value   int
}

// Tau is the singleton silent label.
var Tau = Label{Tau: true}

// Event builds a visible label.
func Event(channel string, kind PayloadKind, value int) Label {
	return Label{Channel: channel, Kind: kind, Value: value}
}

func (l Label) String() string {
	if l.Tau {
		return "tau"
	}
	switch l.Kind {
	case PayloadNone:
		return l.Channel
	default:
		return fmt.Sprintf("%s.%d", l.Channel, l.Value)
	}
}

// Equal implements the "tau equals only tau" rule from spec.md section 3.
func (l Label) Equal(o Label) bool {
	if l.Tau || o.Tau {
		return l.Tau == o.Tau
	}
	return l.Channel == o.Channel && l.Kind == o.Kind && l.Value == o.Value
}

// Compare gives the total order transitions are sorted by: tau sorts
// before every visible event, visible events sort by channel name, then
// payload kind, then payload value.
func Compare(a, b Label) int {
	if a.Tau && b.Tau {
		return 0
	}
	if a.Tau {
		return -1
	}
	if b.Tau {
		return 1
	}
	if a.Channel != b.Channel {
		if a.Channel < b.Channel {
			return -1
		}
		return 1
	}
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch {
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	default:
		return 0
	}
}
