package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Linaro/lite-cornea/internal/iris"
	"github.com/Linaro/lite-cornea/internal/iris/iristest"
)

func TestCommonPrefixLen(t *testing.T) {
	assert.Equal(t, 0, commonPrefixLen(nil))
	assert.Equal(t, 5, commonPrefixLen([]string{"a.b.c", "a.b.c"}))
	assert.Equal(t, 4, commonPrefixLen([]string{"a.b.cpu0", "a.b.cpu1", "a.b.bus"}))
	assert.Equal(t, 0, commonPrefixLen([]string{"x", "y"}))
}

func TestMismatch(t *testing.T) {
	assert.Equal(t, 0, mismatch("abc", "xbc"))
	assert.Equal(t, 2, mismatch("abc", "abd"))
	assert.Equal(t, 3, mismatch("abc", "abcdef"))
}

func TestFindInstanceExact(t *testing.T) {
	server := iristest.Start(t)
	server.Handle("instanceRegistry_getInstanceInfoByName", func(params json.RawMessage) (any, error) {
		return map[string]any{"instId": 9, "instName": "component.FVP.cpu0"}, nil
	})
	client := dialFor(t, server)

	inst, err := findInstance(client, "component.FVP.cpu0")
	require.NoError(t, err)
	assert.Equal(t, uint32(9), inst.ID)
}

func TestFindInstanceByStrippedPrefix(t *testing.T) {
	server := iristest.Start(t)
	server.Handle("instanceRegistry_getInstanceInfoByName", func(json.RawMessage) (any, error) {
		return nil, fmt.Errorf("not found")
	})
	server.Handle("instanceRegistry_getList", func(json.RawMessage) (any, error) {
		return []map[string]any{
			{"instId": 4, "instName": "component.FVP_Base.cluster0.cpu0"},
			{"instId": 5, "instName": "component.FVP_Base.cluster0.cpu1"},
			{"instId": 6, "instName": "component.FVP_Base.bus"},
		}, nil
	})
	client := dialFor(t, server)

	inst, err := findInstance(client, "cluster0.cpu1")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), inst.ID)

	_, err = findInstance(client, "cluster9.cpu9")
	assert.Error(t, err)
}

func dialFor(t *testing.T, server *iristest.Server) *iris.Client {
	t.Helper()
	client, err := iris.Dial(server.Port(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	_, err = client.Register("cornea")
	require.NoError(t, err)
	return client
}
