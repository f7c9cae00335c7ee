// Package gdb adapts an Iris simulator instance to the debug-stub target
// contract: register and memory read-out, breakpoint and watchpoint
// management, run control, and translation of asynchronous watchpoint events
// into stop reasons.
package gdb

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/Linaro/lite-cornea/internal/iris"
)

// Arch selects one of the two supported register architectures. The variant
// is fixed at session construction and drives the GDB register file layout,
// the mapping from simulator resource names to file slots, and the guest
// word size.
type Arch int

const (
	// T32 is ARMv7-M: 26 slots of 32 bits.
	T32 Arch = iota
	// A64 is ARMv8-A: 98 slots of 64 bits.
	A64
)

func (a Arch) String() string {
	if a == A64 {
		return "a64"
	}
	return "t32"
}

// Slots is the number of register-file slots GDB expects.
func (a Arch) Slots() int {
	if a == A64 {
		return 98
	}
	return 26
}

// WordBytes is the width of one register slot on the wire to the simulator.
func (a Arch) WordBytes() int {
	if a == A64 {
		return 8
	}
	return 4
}

// PCSlot is the register-file slot holding the program counter.
func (a Arch) PCSlot() int {
	if a == A64 {
		return 32
	}
	return 15
}

// SlotForName maps a simulator resource name onto a register-file slot.
// Resources with no slot (parameters, FPU state, system registers) report
// false.
func (a Arch) SlotForName(name string) (int, bool) {
	if a == A64 {
		switch name {
		case "SP":
			return 31, true
		case "PC":
			return 32, true
		case "XPSR", "CPSR":
			return 33, true
		}
		if num, ok := cutNumber(name, "X"); ok && num <= 30 {
			return num, true
		}
		return 0, false
	}
	switch name {
	case "XPSR":
		return 25, true
	}
	if num, ok := cutNumber(name, "R"); ok && num <= 15 {
		return num, true
	}
	return 0, false
}

// SlotForID validates a raw GDB register number and returns its file slot.
func (a Arch) SlotForID(id int) (int, bool) {
	if a == A64 {
		return id, id >= 0 && id <= 33
	}
	return id, (id >= 0 && id <= 15) || id == 25
}

// Serialize renders a register file in GDB's expected byte layout. Slots are
// little-endian words. On t32, slots 16..23 are the legacy 96-bit FPU
// registers and carry 8 bytes of zero padding each; on a64 the file ends
// with GDB's 4-byte CPSR trailer.
func (a Arch) Serialize(regs []uint64) []byte {
	buf := make([]byte, 0, a.SerializedSize())
	for i, reg := range regs {
		if a == A64 {
			buf = binary.LittleEndian.AppendUint64(buf, reg)
			continue
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(reg))
		if i >= 16 && i < 24 {
			buf = append(buf, make([]byte, 8)...)
		}
	}
	if a == A64 {
		buf = append(buf, 0, 0, 0, 0)
	}
	return buf
}

// SerializedSize is the byte length of a serialized register file.
func (a Arch) SerializedSize() int {
	if a == A64 {
		return 98*8 + 4
	}
	return 26*4 + 8*8
}

// slotRange gives the offset and length of one slot within the serialized
// file, accounting for the t32 96-bit FPU slots.
func (a Arch) slotRange(slot int) (off, size int) {
	if a == A64 {
		return slot * 8, 8
	}
	switch {
	case slot < 16:
		return slot * 4, 4
	case slot < 24:
		return 16*4 + (slot-16)*12, 12
	default:
		return 16*4 + 8*12 + (slot-24)*4, 4
	}
}

// DetectArch picks the adapter variant for an instance from its resource
// list: a CPU reporting an X30 register is 64-bit.
func DetectArch(resources []iris.Resource) Arch {
	for _, r := range resources {
		if r.Name == "X30" {
			return A64
		}
	}
	return T32
}

// cutNumber parses names like R12 or X30 into their register number.
func cutNumber(name, prefix string) (int, bool) {
	digits, ok := strings.CutPrefix(name, prefix)
	if !ok || digits == "" {
		return 0, false
	}
	num, err := strconv.Atoi(digits)
	if err != nil || num < 0 {
		return 0, false
	}
	return num, true
}
