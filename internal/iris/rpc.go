package iris

import "encoding/json"

// Typed wrappers over Execute, one per Iris method the bridge uses. The
// params of instance-scoped methods name their target instance with instId;
// the instance-registry lookups take a name or prefix instead.

// InstanceByName resolves one instance by its full hierarchical name.
func (c *Client) InstanceByName(name string) (Instance, error) {
	var inst Instance
	err := c.Execute("instanceRegistry_getInstanceInfoByName", map[string]any{
		"instName": name,
	}, &inst)
	return inst, err
}

// Instances lists the instances whose names start with prefix.
func (c *Client) Instances(prefix string) ([]Instance, error) {
	var insts []Instance
	err := c.Execute("instanceRegistry_getList", map[string]any{
		"prefix": prefix,
	}, &insts)
	return insts, err
}

// Resources lists the registers and parameters of an instance.
func (c *Client) Resources(instID uint32) ([]Resource, error) {
	var res []Resource
	err := c.Execute("resource_getList", map[string]any{
		"instId": instID,
	}, &res)
	return res, err
}

// ReadResources reads the current values of the named resources.
func (c *Client) ReadResources(instID uint32, rscIDs []uint64) ([]uint64, error) {
	var res struct {
		Data []uint64 `json:"data"`
	}
	err := c.Execute("resource_read", map[string]any{
		"instId": instID,
		"rscIds": rscIDs,
	}, &res)
	return res.Data, err
}

// MemorySpaces lists the address spaces an instance exposes.
func (c *Client) MemorySpaces(instID uint32) ([]Space, error) {
	var spaces []Space
	err := c.Execute("memory_getMemorySpaces", map[string]any{
		"instId": instID,
	}, &spaces)
	return spaces, err
}

// ReadMemory reads count elements of byteWidth bytes from address in the
// given space, from the perspective of the instance. Data comes back packed
// into 64-bit words.
func (c *Client) ReadMemory(instID uint32, spaceID, address, byteWidth, count uint64) ([]uint64, error) {
	var res struct {
		Data  []uint64        `json:"data"`
		Error json.RawMessage `json:"error,omitempty"`
	}
	err := c.Execute("memory_read", map[string]any{
		"instId":    instID,
		"spaceId":   spaceID,
		"address":   address,
		"byteWidth": byteWidth,
		"count":     count,
	}, &res)
	return res.Data, err
}

// Breakpoint types accepted by SetBreakpoint.
const (
	BreakpointCode     = "code"
	BreakpointData     = "data"
	BreakpointRegister = "register"
)

// BreakpointSpec carries the parameters of breakpoint_set. RWMode, Size and
// SpaceID are optional and omitted from the wire when unset.
type BreakpointSpec struct {
	InstID   uint32  `json:"instId"`
	Address  uint64  `json:"address"`
	RWMode   string  `json:"rwMode,omitempty"`
	Size     *uint64 `json:"size,omitempty"`
	SpaceID  *uint64 `json:"spaceId,omitempty"`
	SyncEC   bool    `json:"syncEc"`
	Type     string  `json:"type"`
	DontStop bool    `json:"dontStop"`
}

// SetBreakpoint installs a breakpoint and returns its simulator id.
func (c *Client) SetBreakpoint(spec BreakpointSpec) (uint64, error) {
	var id uint64
	err := c.Execute("breakpoint_set", spec, &id)
	return id, err
}

// CodeBreakpoint installs a code breakpoint at address in the given space.
func (c *Client) CodeBreakpoint(instID uint32, address uint64, size *uint64, spaceID uint64) (uint64, error) {
	return c.SetBreakpoint(BreakpointSpec{
		InstID:  instID,
		Address: address,
		Size:    size,
		SpaceID: &spaceID,
		Type:    BreakpointCode,
	})
}

// DataBreakpoint installs a watchpoint at address in the given space. rwMode
// is "r", "w" or "rw".
func (c *Client) DataBreakpoint(instID uint32, address uint64, rwMode string, spaceID uint64) (uint64, error) {
	return c.SetBreakpoint(BreakpointSpec{
		InstID:  instID,
		Address: address,
		RWMode:  rwMode,
		SpaceID: &spaceID,
		Type:    BreakpointData,
	})
}

// DeleteBreakpoint removes a previously installed breakpoint.
func (c *Client) DeleteBreakpoint(instID uint32, bptID uint64) error {
	return c.Execute("breakpoint_delete", map[string]any{
		"instId": instID,
		"bptId":  bptID,
	}, nil)
}

// Step units accepted by StepSetup.
const (
	StepInstruction = "instruction"
	StepCycle       = "cycle"
)

// StepSetup arms the instance to halt after the given number of steps the
// next time simulation time runs.
func (c *Client) StepSetup(instID uint32, steps uint64, unit string) error {
	return c.Execute("step_setup", map[string]any{
		"instId": instID,
		"steps":  steps,
		"unit":   unit,
	}, nil)
}

// StartSimulation lets simulation time run. instID names the simulation
// engine.
func (c *Client) StartSimulation(instID uint32) error {
	return c.Execute("simulationTime_run", map[string]any{
		"instId": instID,
	}, nil)
}

// StopSimulation halts simulation time.
func (c *Client) StopSimulation(instID uint32) error {
	return c.Execute("simulationTime_stop", map[string]any{
		"instId": instID,
	}, nil)
}

// SimulationTime reports the simulation clock and whether time is running.
func (c *Client) SimulationTime(instID uint32) (Time, error) {
	var t Time
	err := c.Execute("simulationTime_get", map[string]any{
		"instId": instID,
	}, &t)
	return t, err
}

// ResetSimulation resets the platform.
func (c *Client) ResetSimulation(instID uint32, allowPartialReset bool) error {
	return c.Execute("simulation_reset", map[string]any{
		"instId":            instID,
		"allowPartialReset": allowPartialReset,
	}, nil)
}

// WaitForInstantiation blocks until the simulation is instantiated again
// after a reset.
func (c *Client) WaitForInstantiation(instID uint32) error {
	return c.Execute("simulation_waitForInstantiation", map[string]any{
		"instId": instID,
	}, nil)
}

// EventSourceByName looks up one event class of an instance.
func (c *Client) EventSourceByName(instID uint32, name string) (EventSource, error) {
	var src EventSource
	err := c.Execute("event_getEventSource", map[string]any{
		"instId": instID,
		"name":   name,
	}, &src)
	return src, err
}

// EventSources lists the event classes of an instance.
func (c *Client) EventSources(instID uint32) ([]EventSource, error) {
	var srcs []EventSource
	err := c.Execute("event_getEventSources", map[string]any{
		"instId": instID,
	}, &srcs)
	return srcs, err
}

// EventStreamSpec carries the parameters of eventStream_create. InstID is
// the emitting instance (optional), ECInstID the receiving one.
type EventStreamSpec struct {
	InstID     *uint32 `json:"instId,omitempty"`
	Disable    bool    `json:"disable"`
	ECInstID   uint32  `json:"ecInstId"`
	EvSrcID    uint32  `json:"evSrcId"`
	RingBuffer bool    `json:"ringBuffer"`
}

// CreateEventStream subscribes the receiving instance to an event source and
// returns the stream id.
func (c *Client) CreateEventStream(spec EventStreamSpec) (uint64, error) {
	var id uint64
	err := c.Execute("eventStream_create", spec, &id)
	return id, err
}
