package command

import "encoding/json"

// RequestKind is a structural mutation or node-addressed request for the
// render graph, submitted from the control side and answered exactly once.
type RequestKind interface {
	requestKind()
}

// AddNode appends a fresh node of the registered kind to the graph.
type AddNode struct {
	Kind string `json:"kind"`
}

// RemoveNode deletes the node at ID and shifts later nodes down.
type RemoveNode struct {
	ID int `json:"id"`
}

// CloneNode duplicates the node at ID's configuration into a new node
// appended at the end. The clone loads its assets independently.
type CloneNode struct {
	ID int `json:"id"`
}

// MoveNode reorders the node at ID to position NewID.
type MoveNode struct {
	ID    int `json:"id"`
	NewID int `json:"new_id"`
}

// ToNode forwards a NodeRequest to the node at ID.
type ToNode struct {
	ID  int
	Req NodeRequest
}

func (AddNode) requestKind()    {}
func (RemoveNode) requestKind() {}
func (CloneNode) requestKind()  {}
func (MoveNode) requestKind()   {}
func (ToNode) requestKind()     {}

// Request pairs a request kind with its reply channel. The graph sends
// exactly one Response per Request, including on invalid input.
type Request struct {
	Kind  RequestKind
	Reply chan<- Response
}

// Response is the graph's answer to one Request. Which fields are
// meaningful depends on the request kind.
type Response struct {
	Status   Status          `json:"status"`
	ID       int             `json:"id,omitempty"`
	NewID    int             `json:"new_id,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Instance json.RawMessage `json:"instance,omitempty"`
	Result   *Result         `json:"result,omitempty"`
}
