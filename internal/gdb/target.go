package gdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/shlex"

	"github.com/Linaro/lite-cornea/internal/iris"
	"github.com/Linaro/lite-cornea/internal/rsp"
)

// simulationEngine is the singleton instance owning run control.
const simulationEngine = "framework.SimulationEngine"

// pcMemSpace is the CPU resource holding the id of the currently active
// address space on 64-bit cores.
const pcMemSpace = "PC_MEMSPACE"

// watchEvent is the event class announcing watchpoint hits, and its handler
// key on the wire.
const (
	watchEvent        = "IRIS_BREAKPOINT_HIT"
	watchEventHandler = "ec_" + watchEvent
)

// defaultPollInterval paces simulationTime_get polls while the target runs.
const defaultPollInterval = 100 * time.Millisecond

// Target implements the debug-stub contract for one CPU instance. It lives
// for the duration of one GDB session; the resource and space caches fill
// lazily on first use and are immutable afterwards.
type Target struct {
	client *iris.Client
	cpu    iris.Instance
	sim    uint32
	arch   Arch
	logger *slog.Logger

	pollInterval time.Duration

	resources []iris.Resource
	spaces    []iris.Space

	// breakpoints and watchpoints record, per guest address, the simulator
	// breakpoint ids installed (one per address space that accepted the
	// install). watchAddrs keeps the watchpoint keys sorted so a hit inside
	// [addr, addr+size) can be resolved by a range query.
	breakpoints map[uint64][]uint64
	watchpoints map[uint64][]uint64
	watchAddrs  []uint64

	trigger triggerSlot
}

// NewTarget builds the adapter for a CPU instance. It resolves the
// simulation-engine singleton and, on 64-bit targets, subscribes to the
// simulator's watchpoint-hit events.
func NewTarget(client *iris.Client, cpu iris.Instance, arch Arch, logger *slog.Logger) (*Target, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sim, err := client.InstanceByName(simulationEngine)
	if err != nil {
		return nil, fmt.Errorf("gdb: resolve %s: %w", simulationEngine, err)
	}
	t := &Target{
		client:       client,
		cpu:          cpu,
		sim:          sim.ID,
		arch:         arch,
		logger:       logger,
		pollInterval: defaultPollInterval,
		breakpoints:  make(map[uint64][]uint64),
		watchpoints:  make(map[uint64][]uint64),
	}
	if arch == A64 {
		if err := t.subscribeWatchEvents(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Arch reports the adapter variant this target was built with.
func (t *Target) Arch() Arch { return t.arch }

func (t *Target) subscribeWatchEvents() error {
	src, err := t.client.EventSourceByName(t.cpu.ID, watchEvent)
	if err != nil {
		return fmt.Errorf("gdb: event source %s: %w", watchEvent, err)
	}
	_, err = t.client.CreateEventStream(iris.EventStreamSpec{
		InstID:     &t.cpu.ID,
		ECInstID:   t.client.InstanceID(),
		EvSrcID:    src.ID,
		RingBuffer: true,
	})
	if err != nil {
		return fmt.Errorf("gdb: create event stream: %w", err)
	}
	t.client.OnEvent(watchEventHandler, func(params json.RawMessage) error {
		var ev struct {
			Fields struct {
				RW   string `json:"ACCESS_RW"`
				Addr uint64 `json:"ACCESS_ADDR"`
				Size uint64 `json:"ACCESS_SIZE"`
			} `json:"fields"`
		}
		if err := json.Unmarshal(params, &ev); err != nil {
			t.logger.Warn("undecodable watch event", "err", err)
			return nil
		}
		t.trigger.TryPut(WatchTrigger{Kind: ev.Fields.RW, Addr: ev.Fields.Addr, Size: ev.Fields.Size})
		return nil
	})
	return nil
}

// ensureResources fills the resource cache on first use.
func (t *Target) ensureResources() ([]iris.Resource, error) {
	if t.resources == nil {
		res, err := t.client.Resources(t.cpu.ID)
		if err != nil {
			return nil, err
		}
		t.resources = res
	}
	return t.resources, nil
}

// ensureSpaces fills the address-space cache on first use.
func (t *Target) ensureSpaces() ([]iris.Space, error) {
	if t.spaces == nil {
		spaces, err := t.client.MemorySpaces(t.cpu.ID)
		if err != nil {
			return nil, err
		}
		t.spaces = spaces
	}
	return t.spaces, nil
}

// readRegisterFile reads every mapped register into its file slot. Unmapped
// slots stay zero.
func (t *Target) readRegisterFile() ([]uint64, error) {
	resources, err := t.ensureResources()
	if err != nil {
		return nil, err
	}
	regs := make([]uint64, t.arch.Slots())
	for _, res := range resources {
		slot, ok := t.arch.SlotForName(res.Name)
		if !ok {
			continue
		}
		data, err := t.client.ReadResources(t.cpu.ID, []uint64{res.ID})
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			regs[slot] = data[0]
		}
	}
	return regs, nil
}

// ReadRegisters serializes the full register file in GDB layout.
func (t *Target) ReadRegisters() ([]byte, error) {
	regs, err := t.readRegisterFile()
	if err != nil {
		return nil, err
	}
	return t.arch.Serialize(regs), nil
}

// ReadRegister serializes a single register named by its raw GDB number.
func (t *Target) ReadRegister(regnum int) ([]byte, error) {
	slot, ok := t.arch.SlotForID(regnum)
	if !ok {
		return nil, fmt.Errorf("gdb: unknown register %d", regnum)
	}
	regs, err := t.readRegisterFile()
	if err != nil {
		return nil, err
	}
	full := t.arch.Serialize(regs)
	off, size := t.arch.slotRange(slot)
	return full[off : off+size], nil
}

// WriteRegisters is accepted but not supported; the write is discarded.
func (t *Target) WriteRegisters([]byte) error { return nil }

// WriteMemory is accepted but not supported; the write is discarded.
func (t *Target) WriteMemory(uint64, []byte) error { return nil }

// memorySpaceID picks the address space reads go through: the value of the
// PC_MEMSPACE resource on 64-bit cores, space 0 otherwise.
func (t *Target) memorySpaceID() (uint64, error) {
	if t.arch != A64 {
		return 0, nil
	}
	resources, err := t.ensureResources()
	if err != nil {
		return 0, err
	}
	for _, res := range resources {
		if res.Name != pcMemSpace {
			continue
		}
		data, err := t.client.ReadResources(t.cpu.ID, []uint64{res.ID})
		if err != nil {
			return 0, err
		}
		if len(data) == 0 {
			return 0, fmt.Errorf("gdb: %s read returned no data", pcMemSpace)
		}
		return data[0], nil
	}
	return 0, fmt.Errorf("gdb: no %s resource on %s", pcMemSpace, t.cpu.Name)
}

// ReadMemory fills buf with guest memory starting at addr. The simulator
// returns 64-bit words; they are re-emitted little-endian and truncated or
// zero-padded to len(buf).
func (t *Target) ReadMemory(addr uint64, buf []byte) error {
	spaceID, err := t.memorySpaceID()
	if err != nil {
		return err
	}
	words, err := t.client.ReadMemory(t.cpu.ID, spaceID, addr, 1, uint64(len(buf)))
	if err != nil {
		return err
	}
	clear(buf)
	offset := 0
	for _, word := range words {
		var le [8]byte
		binary.LittleEndian.PutUint64(le[:], word)
		offset += copy(buf[offset:], le[:])
		if offset >= len(buf) {
			break
		}
	}
	return nil
}

// AddBreakpoint installs a code breakpoint at addr in every address space
// that accepts it. Re-adding a recorded address succeeds without touching
// the simulator; an address no space accepts reports false.
func (t *Target) AddBreakpoint(addr uint64, _ int) bool {
	if _, ok := t.breakpoints[addr]; ok {
		return true
	}
	ids := t.installInAllSpaces(func(spaceID uint64) (uint64, error) {
		return t.client.CodeBreakpoint(t.cpu.ID, addr, nil, spaceID)
	})
	if len(ids) == 0 {
		return false
	}
	t.breakpoints[addr] = ids
	return true
}

// RemoveBreakpoint deletes every simulator breakpoint recorded for addr. An
// unknown address succeeds; a failed delete reports false and keeps the
// record.
func (t *Target) RemoveBreakpoint(addr uint64, _ int) bool {
	ids, ok := t.breakpoints[addr]
	if !ok {
		return true
	}
	if !t.deleteAll(ids) {
		return false
	}
	delete(t.breakpoints, addr)
	return true
}

// AddWatchpoint installs a data breakpoint at addr with the given access
// kind. Watchpoints are a 64-bit facility; on t32 the install set is empty
// and the add reports unsupported.
func (t *Target) AddWatchpoint(addr, _ uint64, kind rsp.WatchKind) bool {
	if t.arch != A64 {
		return false
	}
	if _, ok := t.watchpoints[addr]; ok {
		return true
	}
	rwMode := watchRWMode(kind)
	ids := t.installInAllSpaces(func(spaceID uint64) (uint64, error) {
		return t.client.DataBreakpoint(t.cpu.ID, addr, rwMode, spaceID)
	})
	if len(ids) == 0 {
		return false
	}
	t.watchpoints[addr] = ids
	idx, _ := slices.BinarySearch(t.watchAddrs, addr)
	t.watchAddrs = slices.Insert(t.watchAddrs, idx, addr)
	return true
}

// RemoveWatchpoint mirrors RemoveBreakpoint over the ordered watchpoint map.
func (t *Target) RemoveWatchpoint(addr, _ uint64, _ rsp.WatchKind) bool {
	ids, ok := t.watchpoints[addr]
	if !ok {
		return true
	}
	if !t.deleteAll(ids) {
		return false
	}
	delete(t.watchpoints, addr)
	if idx, found := slices.BinarySearch(t.watchAddrs, addr); found {
		t.watchAddrs = slices.Delete(t.watchAddrs, idx, idx+1)
	}
	return true
}

func (t *Target) installInAllSpaces(install func(spaceID uint64) (uint64, error)) []uint64 {
	spaces, err := t.ensureSpaces()
	if err != nil {
		t.logger.Error("memory spaces unavailable", "err", err)
		return nil
	}
	var ids []uint64
	for _, space := range spaces {
		id, err := install(space.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (t *Target) deleteAll(ids []uint64) bool {
	ok := true
	for _, id := range ids {
		if err := t.client.DeleteBreakpoint(t.cpu.ID, id); err != nil {
			t.logger.Error("breakpoint delete failed", "bptId", id, "err", err)
			ok = false
		}
	}
	return ok
}

// resolveWatchAddr maps a trigger range onto the watchpoint GDB registered:
// the smallest recorded address within [Addr, Addr+Size), or the trigger
// address itself when none matches.
func (t *Target) resolveWatchAddr(trig WatchTrigger) uint64 {
	idx, _ := slices.BinarySearch(t.watchAddrs, trig.Addr)
	if idx < len(t.watchAddrs) && t.watchAddrs[idx] < trig.Addr+trig.Size {
		return t.watchAddrs[idx]
	}
	return trig.Addr
}

// Resume runs the simulation until it stops again, polling for the GDB
// break. A step arms a single-instruction halt first. After a plain
// continue stops, a pending watch trigger turns the stop into a watchpoint
// report; otherwise the stop is a breakpoint.
func (t *Target) Resume(action rsp.Action, interrupted func() bool) (rsp.StopReason, error) {
	if action == rsp.ActionStep {
		if err := t.client.StepSetup(t.cpu.ID, 1, iris.StepInstruction); err != nil {
			return rsp.StopReason{}, err
		}
	}
	if err := t.client.StartSimulation(t.sim); err != nil {
		return rsp.StopReason{}, err
	}
	for {
		now, err := t.client.SimulationTime(t.sim)
		if err != nil {
			return rsp.StopReason{}, err
		}
		if !now.Running {
			break
		}
		if interrupted != nil && interrupted() {
			if err := t.client.StopSimulation(t.sim); err != nil {
				return rsp.StopReason{}, err
			}
			return rsp.StopReason{Kind: rsp.StopInterrupt}, nil
		}
		time.Sleep(t.pollInterval)
	}
	if action == rsp.ActionStep {
		return rsp.StopReason{Kind: rsp.StopDoneStep}, nil
	}
	if trig, ok := t.trigger.TryTake(); ok {
		kind, ok := rsp.ParseWatchKind(trig.Kind)
		if !ok {
			return rsp.StopReason{Kind: rsp.StopHwBreak}, nil
		}
		return rsp.StopReason{Kind: rsp.StopWatch, Watch: kind, Addr: t.resolveWatchAddr(trig)}, nil
	}
	return rsp.StopReason{Kind: rsp.StopHwBreak}, nil
}

// Monitor services "monitor" commands from the debugger. reset resets the
// platform and waits for re-instantiation; anything else is echoed back as
// unsupported.
func (t *Target) Monitor(cmd []byte, out io.Writer) error {
	line := string(cmd)
	fields, err := shlex.Split(line)
	if err != nil {
		fields = nil
	}
	if len(fields) == 1 && fields[0] == "reset" {
		if err := t.client.ResetSimulation(t.sim, false); err != nil {
			return err
		}
		return t.client.WaitForInstantiation(t.sim)
	}
	fmt.Fprintf(out, "Monitor command %s not supported\n", line)
	return nil
}

func watchRWMode(kind rsp.WatchKind) string {
	switch kind {
	case rsp.WatchRead:
		return "r"
	case rsp.WatchWrite:
		return "w"
	default:
		return "rw"
	}
}
