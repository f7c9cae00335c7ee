package iris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	assert.Equal(t, "IrisJson:2:{}\n", string(encodeFrame([]byte("{}"))))
	assert.Equal(t, "IrisJson:0:\n", string(encodeFrame(nil)))
}

func TestDecodeFrame(t *testing.T) {
	payload, err := decodeFrame(`IrisJson:14:{"id":1234567}`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1234567}`, string(payload))
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"jsonrpc":"2.0","id":7,"result":null}`)
	line := string(encodeFrame(payload))
	got, err := decodeFrame(line[:len(line)-1])
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeFrameErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"wrong prefix", `NotIris:2:{}`},
		{"missing payload", `IrisJson:2`},
		{"bad length", `IrisJson:x:{}`},
		{"length mismatch", `IrisJson:3:{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeFrame(tc.line)
			assert.Error(t, err)
		})
	}
}

func TestParseFormats(t *testing.T) {
	formats, ok := parseFormats("Supported-Formats: IrisJson, OtherFmt")
	require.True(t, ok)
	assert.Equal(t, []string{"IrisJson", "OtherFmt"}, formats)

	formats, ok = parseFormats("Supported-Formats: IrisJson IrisU64Vec,")
	require.True(t, ok)
	assert.Equal(t, []string{"IrisJson", "IrisU64Vec"}, formats)

	_, ok = parseFormats("CONNECT / IrisRpc/1.0")
	assert.False(t, ok)
}
