package rsp

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint8(0), checksum(""))
	assert.Equal(t, uint8(0x9a), checksum("OK"))
}

func TestWritePacket(t *testing.T) {
	var buf bytes.Buffer
	conn := &Conn{w: &buf, peeked: -1}
	require.NoError(t, conn.WritePacket("OK"))
	assert.Equal(t, "$OK#9a", buf.String())
}

func TestReadPacket(t *testing.T) {
	conn := NewConn(strings.NewReader("$OK#9a"), io.Discard)
	packet, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "OK", packet)
}

func TestReadPacketSkipsJunkAndAcks(t *testing.T) {
	conn := NewConn(strings.NewReader("+$m8000,4#95"), io.Discard)
	packet, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "m8000,4", packet)
}

func TestReadPacketInterrupt(t *testing.T) {
	conn := NewConn(strings.NewReader("\x03"), io.Discard)
	packet, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "\x03", packet)
}

func TestReadPacketBadChecksumNacks(t *testing.T) {
	var out bytes.Buffer
	conn := NewConn(strings.NewReader("$OK#00$OK#9a"), &out)
	packet, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "OK", packet)
	assert.Equal(t, "-", out.String())
}

func TestReadPacketUnescapes(t *testing.T) {
	payload := "X}\x03" // '}' escapes the next byte with XOR 0x20
	frame := fmt.Sprintf("$%s#%02x", payload, checksum(payload))
	conn := NewConn(strings.NewReader(frame), io.Discard)
	packet, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "X#", packet)
}

func TestInterruptedDrainsBreakOnly(t *testing.T) {
	r, w := io.Pipe()
	conn := NewConn(r, io.Discard)
	assert.False(t, conn.Interrupted())

	go w.Write([]byte{interruptByte})
	for !conn.Interrupted() {
	}

	// A non-break byte is held back for the next packet read.
	go w.Write([]byte("$OK#9a"))
	for {
		if !conn.Interrupted() {
			if conn.peeked >= 0 {
				break
			}
		} else {
			t.Fatal("regular byte reported as interrupt")
		}
	}
	packet, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "OK", packet)
}

// scriptTarget is a canned Target for serve-loop tests.
type scriptTarget struct {
	regs        []byte
	mem         map[uint64][]byte
	breakpoints map[uint64]bool
	watchpoints map[uint64]WatchKind
	stop        StopReason
	monitorLog  []string
}

func newScriptTarget() *scriptTarget {
	return &scriptTarget{
		regs:        []byte{0x11, 0x22, 0x33, 0x44},
		mem:         map[uint64][]byte{0x8000: {0xde, 0xad, 0xbe, 0xef}},
		breakpoints: make(map[uint64]bool),
		watchpoints: make(map[uint64]WatchKind),
		stop:        StopReason{Kind: StopHwBreak},
	}
}

func (s *scriptTarget) ReadRegisters() ([]byte, error) { return s.regs, nil }
func (s *scriptTarget) ReadRegister(n int) ([]byte, error) {
	if n >= len(s.regs) {
		return nil, fmt.Errorf("no register %d", n)
	}
	return s.regs[n : n+1], nil
}
func (s *scriptTarget) WriteRegisters([]byte) error      { return nil }
func (s *scriptTarget) WriteMemory(uint64, []byte) error { return nil }
func (s *scriptTarget) ReadMemory(addr uint64, buf []byte) error {
	data, ok := s.mem[addr]
	if !ok {
		return fmt.Errorf("unmapped %#x", addr)
	}
	copy(buf, data)
	return nil
}
func (s *scriptTarget) AddBreakpoint(addr uint64, _ int) bool {
	s.breakpoints[addr] = true
	return true
}
func (s *scriptTarget) RemoveBreakpoint(addr uint64, _ int) bool {
	delete(s.breakpoints, addr)
	return true
}
func (s *scriptTarget) AddWatchpoint(addr, _ uint64, kind WatchKind) bool {
	if addr == 0xbad {
		return false
	}
	s.watchpoints[addr] = kind
	return true
}
func (s *scriptTarget) RemoveWatchpoint(addr, _ uint64, _ WatchKind) bool {
	delete(s.watchpoints, addr)
	return true
}
func (s *scriptTarget) Resume(Action, func() bool) (StopReason, error) {
	return s.stop, nil
}
func (s *scriptTarget) Monitor(cmd []byte, out io.Writer) error {
	s.monitorLog = append(s.monitorLog, string(cmd))
	fmt.Fprint(out, "done")
	return nil
}

// debuggerConn drives the server end of a pipe like a GDB client would.
type debuggerConn struct {
	t *testing.T
	c net.Conn
	r *bufio.Reader
}

func startServe(t *testing.T, target Target) *debuggerConn {
	t.Helper()
	client, server := net.Pipe()
	go Serve(NewConn(server, server), target, nil)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return &debuggerConn{t: t, c: client, r: bufio.NewReader(client)}
}

func (d *debuggerConn) send(payload string) {
	d.t.Helper()
	_, err := fmt.Fprintf(d.c, "$%s#%02x", payload, checksum(payload))
	require.NoError(d.t, err)
}

// roundTrip sends a packet and returns the payload of the reply, skipping
// ack bytes.
func (d *debuggerConn) roundTrip(payload string) string {
	d.t.Helper()
	d.send(payload)
	for {
		b, err := d.r.ReadByte()
		require.NoError(d.t, err)
		if b == '+' || b == '-' {
			continue
		}
		require.Equal(d.t, byte('$'), b)
		break
	}
	reply, err := d.r.ReadString('#')
	require.NoError(d.t, err)
	reply = reply[:len(reply)-1]
	_, err = d.r.Discard(2)
	require.NoError(d.t, err)
	return reply
}

func TestServeHandshake(t *testing.T) {
	d := startServe(t, newScriptTarget())
	reply := d.roundTrip("qSupported:multiprocess+;xmlRegisters=i386")
	assert.Contains(t, reply, "QStartNoAckMode+")
	assert.Contains(t, reply, "PacketSize=")

	assert.Equal(t, "OK", d.roundTrip("QStartNoAckMode"))
	assert.Equal(t, "S05", d.roundTrip("?"))
}

func TestServeRegisterAndMemoryReads(t *testing.T) {
	target := newScriptTarget()
	d := startServe(t, target)

	assert.Equal(t, "11223344", d.roundTrip("g"))
	assert.Equal(t, "22", d.roundTrip("p1"))
	assert.Equal(t, "E01", d.roundTrip("pff"))
	assert.Equal(t, "deadbeef", d.roundTrip("m8000,4"))
	assert.Equal(t, "E01", d.roundTrip("m6000,4"))
}

func TestServeBreakpointPackets(t *testing.T) {
	target := newScriptTarget()
	d := startServe(t, target)

	assert.Equal(t, "OK", d.roundTrip("Z0,8000,4"))
	assert.True(t, target.breakpoints[0x8000])
	assert.Equal(t, "OK", d.roundTrip("z0,8000,4"))
	assert.False(t, target.breakpoints[0x8000])

	assert.Equal(t, "OK", d.roundTrip("Z2,1000,4"))
	assert.Equal(t, WatchWrite, target.watchpoints[0x1000])
	assert.Equal(t, "OK", d.roundTrip("Z3,2000,4"))
	assert.Equal(t, WatchRead, target.watchpoints[0x2000])
	assert.Equal(t, "OK", d.roundTrip("Z4,3000,4"))
	assert.Equal(t, WatchAccess, target.watchpoints[0x3000])

	// Unsupported installs get the empty reply.
	assert.Equal(t, "", d.roundTrip("Z2,bad,4"))
}

func TestServeResumeReplies(t *testing.T) {
	target := newScriptTarget()
	d := startServe(t, target)

	assert.Equal(t, "S05", d.roundTrip("c"))

	target.stop = StopReason{Kind: StopDoneStep}
	assert.Equal(t, "S05", d.roundTrip("s"))

	target.stop = StopReason{Kind: StopInterrupt}
	assert.Equal(t, "S02", d.roundTrip("c"))

	target.stop = StopReason{Kind: StopWatch, Watch: WatchWrite, Addr: 0x8000}
	assert.Equal(t, "T05watch:8000;", d.roundTrip("c"))

	target.stop = StopReason{Kind: StopWatch, Watch: WatchRead, Addr: 0x2000}
	assert.Equal(t, "T05rwatch:2000;", d.roundTrip("c"))
}

func TestServeMonitorCommand(t *testing.T) {
	target := newScriptTarget()
	d := startServe(t, target)

	reply := d.roundTrip("qRcmd," + hex.EncodeToString([]byte("reset")))
	assert.Equal(t, hex.EncodeToString([]byte("done")), reply)
	assert.Equal(t, []string{"reset"}, target.monitorLog)
}

func TestServeUnknownPacket(t *testing.T) {
	d := startServe(t, newScriptTarget())
	assert.Equal(t, "", d.roundTrip("qfThreadInfo"))
}

func TestServeDetach(t *testing.T) {
	d := startServe(t, newScriptTarget())
	assert.Equal(t, "OK", d.roundTrip("D"))
}

func TestStopReply(t *testing.T) {
	assert.Equal(t, "S05", stopReply(StopReason{Kind: StopDoneStep}))
	assert.Equal(t, "S05", stopReply(StopReason{Kind: StopHwBreak}))
	assert.Equal(t, "S02", stopReply(StopReason{Kind: StopInterrupt}))
	assert.Equal(t, "T05awatch:1004;",
		stopReply(StopReason{Kind: StopWatch, Watch: WatchAccess, Addr: 0x1004}))
}

func TestParseWatchKind(t *testing.T) {
	kind, ok := ParseWatchKind("r")
	require.True(t, ok)
	assert.Equal(t, WatchRead, kind)
	kind, ok = ParseWatchKind("w")
	require.True(t, ok)
	assert.Equal(t, WatchWrite, kind)
	kind, ok = ParseWatchKind("rw")
	require.True(t, ok)
	assert.Equal(t, WatchAccess, kind)
	_, ok = ParseWatchKind("x")
	assert.False(t, ok)
}
