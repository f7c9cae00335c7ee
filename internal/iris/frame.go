// Package iris is a client for the Iris debug and control protocol spoken by
// ARM Fast Models: JSON-RPC 2.0 over TCP with a line-oriented length-prefixed
// framing. The client owns the simulator connection, correlates request ids
// with responses, and dispatches unsolicited event messages to registered
// handlers.
package iris

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Wire format constants. A framed message is one ASCII line of the form
// "IrisJson:<decimal-len>:<payload>\n" where <payload> is exactly <len>
// bytes of UTF-8 JSON.
const (
	framePrefix = "IrisJson:"
	formatName  = "IrisJson"

	// clientHello opens the handshake and names the serialization formats
	// this client can speak.
	clientHello = "CONNECT / IrisRpc/1.0\r\nSupported-Formats: IrisJson\r\n\r\n"

	// formatsPrefix introduces the server's banner line listing the formats
	// it accepts.
	formatsPrefix = "Supported-Formats: "
)

// encodeFrame renders one framed message line, including the trailing
// newline.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, 0, len(framePrefix)+len(payload)+24)
	buf = append(buf, framePrefix...)
	buf = strconv.AppendInt(buf, int64(len(payload)), 10)
	buf = append(buf, ':')
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	return buf
}

// decodeFrame extracts the payload from a framed line (without its trailing
// newline). The byte length of the payload must match the advertised length;
// a mismatch is an error the caller logs and drops, never a stream failure.
func decodeFrame(line string) ([]byte, error) {
	rest, ok := strings.CutPrefix(line, framePrefix)
	if !ok {
		return nil, fmt.Errorf("line does not start with %q", framePrefix)
	}
	lenStr, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("frame missing length or payload")
	}
	size, err := strconv.Atoi(lenStr)
	if err != nil {
		return nil, fmt.Errorf("frame length %q: %w", lenStr, err)
	}
	if len(payload) != size {
		return nil, fmt.Errorf("frame length %d does not match payload length %d", size, len(payload))
	}
	return []byte(payload), nil
}

// parseFormats splits the format list out of a "Supported-Formats:" banner
// line, or returns false if the line is something else. Servers separate
// formats with spaces or commas; trailing commas are trimmed from each token.
func parseFormats(line string) ([]string, bool) {
	rest, ok := strings.CutPrefix(line, formatsPrefix)
	if !ok {
		return nil, false
	}
	formats := strings.FieldsFunc(rest, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return formats, true
}
