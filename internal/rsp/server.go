package rsp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Serve runs the packet loop against a target until the debugger detaches,
// kills the session, or the transport closes. It returns nil on a detach or
// kill and the transport error otherwise.
func Serve(conn *Conn, target Target, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	acks := true
	for {
		packet, err := conn.ReadPacket()
		if err != nil {
			return err
		}
		if packet == "" {
			continue
		}
		if packet == "\x03" {
			// A break with no resume in flight has nothing to stop.
			continue
		}
		if acks {
			if err := conn.Ack(); err != nil {
				return err
			}
		}

		reply, done := handlePacket(conn, target, packet, &acks, logger)
		if err := conn.WritePacket(reply); err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// handlePacket dispatches one packet and produces its reply. done is true
// when the session should end after the reply is sent.
func handlePacket(conn *Conn, target Target, packet string, acks *bool, logger *slog.Logger) (reply string, done bool) {
	switch {
	case strings.HasPrefix(packet, "qSupported"):
		return "PacketSize=3fff;QStartNoAckMode+;hwbreak+;swbreak+", false
	case packet == "QStartNoAckMode":
		*acks = false
		return "OK", false
	case packet == "?":
		return "S05", false
	case packet == "g":
		data, err := target.ReadRegisters()
		if err != nil {
			logger.Error("register read failed", "err", err)
			return "E01", false
		}
		return hex.EncodeToString(data), false
	case packet[0] == 'p':
		regnum, err := strconv.ParseUint(packet[1:], 16, 32)
		if err != nil {
			return "E01", false
		}
		data, err := target.ReadRegister(int(regnum))
		if err != nil {
			return "E01", false
		}
		return hex.EncodeToString(data), false
	case packet[0] == 'G':
		if err := target.WriteRegisters([]byte(packet[1:])); err != nil {
			return "E01", false
		}
		return "OK", false
	case packet[0] == 'P':
		return "OK", false
	case packet[0] == 'm':
		addr, length, err := parseAddrLen(packet[1:])
		if err != nil {
			return "E01", false
		}
		buf := make([]byte, length)
		if err := target.ReadMemory(addr, buf); err != nil {
			logger.Error("memory read failed", "addr", fmt.Sprintf("%#x", addr), "err", err)
			return "E01", false
		}
		return hex.EncodeToString(buf), false
	case packet[0] == 'M' || packet[0] == 'X':
		addr, _, err := parseAddrLen(packet[1:])
		if err != nil {
			return "E01", false
		}
		if err := target.WriteMemory(addr, nil); err != nil {
			return "E01", false
		}
		return "OK", false
	case packet == "c" || packet == "s":
		action := ActionContinue
		if packet == "s" {
			action = ActionStep
		}
		reason, err := target.Resume(action, conn.Interrupted)
		if err != nil {
			logger.Error("resume failed", "err", err)
			return "E01", false
		}
		return stopReply(reason), false
	case packet == "vCont?":
		// Not advertised; GDB falls back to bare c/s.
		return "", false
	case packet[0] == 'Z' || packet[0] == 'z':
		return handleBreakpoint(target, packet), false
	case strings.HasPrefix(packet, "qRcmd,"):
		cmd, err := hex.DecodeString(packet[len("qRcmd,"):])
		if err != nil {
			return "E01", false
		}
		var out bytes.Buffer
		if err := target.Monitor(cmd, &out); err != nil {
			return "E01", false
		}
		if out.Len() == 0 {
			return "OK", false
		}
		return hex.EncodeToString(out.Bytes()), false
	case packet == "D":
		return "OK", true
	case packet == "k":
		return "", true
	default:
		// Unknown packets get the empty "unsupported" reply.
		return "", false
	}
}

// handleBreakpoint services Z (insert) and z (remove) packets. Types 0 and 1
// are code breakpoints; 2, 3 and 4 are write, read and access watchpoints.
func handleBreakpoint(target Target, packet string) string {
	parts := strings.Split(packet[1:], ",")
	if len(parts) != 3 {
		return "E01"
	}
	typ, err := strconv.Atoi(parts[0])
	if err != nil {
		return "E01"
	}
	addr, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return "E01"
	}
	kind, err := strconv.ParseUint(parts[2], 16, 64)
	if err != nil {
		return "E01"
	}
	insert := packet[0] == 'Z'

	var ok bool
	switch typ {
	case 0, 1:
		if insert {
			ok = target.AddBreakpoint(addr, int(kind))
		} else {
			ok = target.RemoveBreakpoint(addr, int(kind))
		}
	case 2, 3, 4:
		watch := map[int]WatchKind{2: WatchWrite, 3: WatchRead, 4: WatchAccess}[typ]
		if insert {
			ok = target.AddWatchpoint(addr, kind, watch)
		} else {
			ok = target.RemoveWatchpoint(addr, kind, watch)
		}
	default:
		return ""
	}
	if !ok {
		return ""
	}
	return "OK"
}

// stopReply renders a stop reason as its RSP stop-reply packet.
func stopReply(reason StopReason) string {
	switch reason.Kind {
	case StopInterrupt:
		return "S02"
	case StopWatch:
		name := map[WatchKind]string{
			WatchWrite:  "watch",
			WatchRead:   "rwatch",
			WatchAccess: "awatch",
		}[reason.Watch]
		return fmt.Sprintf("T05%s:%x;", name, reason.Addr)
	default:
		return "S05"
	}
}

func parseAddrLen(s string) (addr, length uint64, err error) {
	addrStr, rest, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("rsp: malformed addr,length in %q", s)
	}
	lenStr, _, _ := strings.Cut(rest, ":")
	addr, err = strconv.ParseUint(addrStr, 16, 64)
	if err != nil {
		return 0, 0, err
	}
	length, err = strconv.ParseUint(lenStr, 16, 64)
	if err != nil {
		return 0, 0, err
	}
	return addr, length, nil
}
