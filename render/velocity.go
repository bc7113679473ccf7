package render

import "math"

// VelocityMapKind selects how incoming note velocities are reshaped
// before they reach a node's engine.
type VelocityMapKind string

const (
	VelocityIdentity VelocityMapKind = "identity"
	VelocityLinear   VelocityMapKind = "linear"
)

// VelocityMap rescales velocities. Linear maps the full 0..127 input
// range onto [Min, Max]; Identity passes velocities through.
type VelocityMap struct {
	Kind VelocityMapKind `json:"kind"`
	Min  uint8           `json:"min,omitempty"`
	Max  uint8           `json:"max,omitempty"`
}

// Apply maps one velocity.
func (m VelocityMap) Apply(velocity uint8) uint8 {
	switch m.Kind {
	case VelocityLinear:
		return mapLinear(velocity, m.Min, m.Max)
	default:
		return velocity
	}
}

func mapLinear(velocity, min, max uint8) uint8 {
	return uint8(math.Round(float64(velocity)/127.0*float64(max-min))) + min
}
