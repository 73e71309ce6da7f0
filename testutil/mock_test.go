package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/fncengine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRecordingFunc(t *testing.T) {
	m := &RecordingFunc{Result: "done"}
	fn := m.Func()
	assert.Nil(t, m.LastCall())
	out, err := fn(context.Background(), map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	_, err = fn(context.Background(), map[string]any{"x": 2})
	require.NoError(t, err)
	require.Len(t, m.Calls(), 2)
	assert.Equal(t, map[string]any{"x": 2}, m.LastCall())
}

func TestRecordingFunc_CallFn(t *testing.T) {
	m := &RecordingFunc{CallFn: func(_ context.Context, args map[string]any) (any, error) {
		return args["x"], nil
	}}
	out, err := m.Func()(context.Background(), map[string]any{"x": "y"})
	require.NoError(t, err)
	assert.Equal(t, "y", out)
}

func TestNewTestRegistry(t *testing.T) {
	m := &RecordingFunc{Result: 42}
	reg := NewTestRegistry(map[string]fncengine.Func{"m": m.Func()})
	require.NotNil(t, reg)
	assert.Equal(t, []string{"m"}, reg.Names())
	assert.Equal(t, "session-1", reg.SessionID())
	reg.Reset()
	assert.Equal(t, "session-2", reg.SessionID())

	d := NewTestDispatcher(reg)
	res, err := d.ParseAndInvoke(context.Background(), `{"name":"m","parameters":{},"returns":[{"name":"r"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, res)
	out, err := reg.Output("r")
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}
