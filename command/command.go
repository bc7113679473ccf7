// Package command defines the request/response/broadcast vocabulary shared
// by the render graph, the sequencer, and remote control frontends.
package command

import "encoding/json"

// Status classifies the outcome of a request.
type Status int

const (
	StatusOk Status = iota
	StatusInvalidID
	StatusInvalidNodeKind
	StatusDenied
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusInvalidID:
		return "invalid-id"
	case StatusInvalidNodeKind:
		return "invalid-node-kind"
	case StatusDenied:
		return "denied"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// FieldUpdate is one changed field of a node or sequencer snapshot,
// already marshalled for broadcast to observers.
type FieldUpdate struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Result is the typed outcome of a single node or sequencer request.
// A successful mutation carries the field diffs it produced.
type Result struct {
	Status Status        `json:"status"`
	Fields []FieldUpdate `json:"fields,omitempty"`
}

// Ok is a plain success result with no field diffs.
func Ok() Result {
	return Result{Status: StatusOk}
}

// Fail is a plain failure result.
func Fail() Result {
	return Result{Status: StatusFailed}
}

// Deny is the result for a request the target does not support.
func Deny() Result {
	return Result{Status: StatusDenied}
}

// Field marshals one named value into a FieldUpdate.
func Field(name string, value any) (FieldUpdate, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return FieldUpdate{}, err
	}
	return FieldUpdate{Name: name, Value: raw}, nil
}

// UpdateFields builds a success Result from name/value pairs, degrading
// to StatusFailed if any value refuses to marshal.
func UpdateFields(pairs ...any) Result {
	if len(pairs)%2 != 0 {
		return Fail()
	}
	fields := make([]FieldUpdate, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return Fail()
		}
		field, err := Field(name, pairs[i+1])
		if err != nil {
			return Fail()
		}
		fields = append(fields, field)
	}
	return Result{Status: StatusOk, Fields: fields}
}
