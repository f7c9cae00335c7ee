package cmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// groupBy sets the element width of a hex dump.
type groupBy int

const (
	groupU8 groupBy = 1 << iota
	groupU16
	groupU32
	groupU64
)

// parseGroupBy accepts the C-ish spellings of each width.
func parseGroupBy(s string) (groupBy, error) {
	switch s {
	case "u8", "char", "uint8_t":
		return groupU8, nil
	case "u16", "short", "uint16_t":
		return groupU16, nil
	case "u32", "int", "uint32_t":
		return groupU32, nil
	case "u64", "long", "uint64_t":
		return groupU64, nil
	}
	return 0, fmt.Errorf("unknown group-by %q", s)
}

var dumpHeaders = map[groupBy]string{
	groupU8:  "         0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f",
	groupU16: "         0    2    4    6    8    a    c    e",
	groupU32: "         0        4        8        c",
	groupU64: "         0                8",
}

// hexDump prints buf 16 bytes per row with an ASCII gutter, the way the
// memory-read subcommand presents guest memory. Rows are aligned down to 16
// bytes; positions outside [addr, addr+len(buf)) are blank.
func hexDump(w io.Writer, addr uint64, buf []byte, group groupBy) {
	fmt.Fprintln(w, dumpHeaders[group])
	step := int(group)
	base := addr &^ 0xf
	for rowAddr := base; rowAddr < addr+uint64(len(buf)); rowAddr += 0x10 {
		fmt.Fprintf(w, "%08x", rowAddr)
		for cur := rowAddr; cur < rowAddr+0x10; cur += uint64(step) {
			if cur >= addr && cur+uint64(step) <= addr+uint64(len(buf)) {
				chunk := buf[cur-addr : cur-addr+uint64(step)]
				switch group {
				case groupU8:
					fmt.Fprintf(w, " %02x", chunk[0])
				case groupU16:
					fmt.Fprintf(w, " %04x", binary.LittleEndian.Uint16(chunk))
				case groupU32:
					fmt.Fprintf(w, " %08x", binary.LittleEndian.Uint32(chunk))
				case groupU64:
					fmt.Fprintf(w, " %016x", binary.LittleEndian.Uint64(chunk))
				}
			} else {
				fmt.Fprintf(w, " %s", strings.Repeat(" ", step*2))
			}
		}
		fmt.Fprint(w, " ")
		for cur := rowAddr; cur < rowAddr+0x10; cur++ {
			if cur >= addr && cur < addr+uint64(len(buf)) {
				b := buf[cur-addr]
				if b >= 0x21 && b <= 0x7e {
					fmt.Fprintf(w, "%c", b)
				} else {
					fmt.Fprint(w, ".")
				}
			} else {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprintln(w)
	}
}

// wordsToBytes unpacks the simulator's 64-bit data words into size
// little-endian bytes.
func wordsToBytes(words []uint64, size int) []byte {
	buf := make([]byte, 0, len(words)*8)
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	if len(buf) > size {
		buf = buf[:size]
	}
	for len(buf) < size {
		buf = append(buf, 0)
	}
	return buf
}
