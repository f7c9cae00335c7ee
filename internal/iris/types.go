package iris

import "encoding/json"

// Instance is a named component inside the simulator: a CPU, a bus, or the
// simulation-engine singleton. Names are hierarchical with dot separators.
type Instance struct {
	ID   uint32 `json:"instId"`
	Name string `json:"instName"`
}

// Resource is a register or configuration parameter exposed by an instance.
// Registers are the entries without ParameterInfo.
type Resource struct {
	ID            uint64          `json:"rscId"`
	Name          string          `json:"name"`
	CName         string          `json:"cname,omitempty"`
	Description   string          `json:"description,omitempty"`
	BitWidth      uint64          `json:"bitWidth"`
	ParameterInfo json.RawMessage `json:"parameterInfo,omitempty"`
	RegisterInfo  json.RawMessage `json:"registerInfo,omitempty"`
	RWMode        string          `json:"rwMode,omitempty"`
}

// IsRegister reports whether the resource is a register rather than a
// parameter.
func (r Resource) IsRegister() bool { return len(r.ParameterInfo) == 0 }

// Space is a named memory address space exposed by an instance.
type Space struct {
	ID          uint64  `json:"spaceId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Endianness  string  `json:"endianness,omitempty"`
	MinAddr     *uint64 `json:"minAddr,omitempty"`
	MaxAddr     *uint64 `json:"maxAddr,omitempty"`
}

// Field describes one field of an event class.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        uint64 `json:"size"`
	Description string `json:"description,omitempty"`
}

// EventSource is a named event class an instance can emit.
type EventSource struct {
	ID          uint32  `json:"evSrcId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// Time is the simulation clock as reported by simulationTime_get.
type Time struct {
	Ticks   uint64 `json:"ticks"`
	TickHz  uint64 `json:"tickHz"`
	Running bool   `json:"running"`
}

// envelope is the decoded shape of one inbound JSON-RPC message. Responses
// carry an id and either a result or an error; events carry a method and
// params with no id.
type envelope struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// request is the outbound JSON-RPC 2.0 object shape.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}
