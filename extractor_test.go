package fncengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type moveArgs struct {
	From  point `json:"from"`
	Steps int   `json:"steps"`
}

func TestExtractor_Bind(t *testing.T) {
	t.Parallel()
	ext, err := NewExtractor[moveArgs](false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    map[string]any
		want    moveArgs
		wantErr bool
	}{
		{
			name: "decoded JSON",
			args: map[string]any{"from": map[string]any{"x": 1.0, "y": 2.0}, "steps": 3.0},
			want: moveArgs{From: point{X: 1, Y: 2}, Steps: 3},
		},
		{
			name: "stored struct",
			args: map[string]any{"from": point{X: 4, Y: 5}, "steps": 1},
			want: moveArgs{From: point{X: 4, Y: 5}, Steps: 1},
		},
		{
			name: "integral float into int",
			args: map[string]any{"from": point{}, "steps": 7.0},
			want: moveArgs{Steps: 7},
		},
		{name: "fractional float into int", args: map[string]any{"from": point{}, "steps": 1.5}, wantErr: true},
		{name: "unknown key", args: map[string]any{"from": point{}, "steps": 1.0, "speed": 2.0}, wantErr: true},
		{name: "not encodable", args: map[string]any{"from": point{}, "steps": func() {}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ext.Bind(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsArgumentError(err))
				assert.ErrorIs(t, err, ErrInvalidArguments)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_Bind_NilArgs(t *testing.T) {
	t.Parallel()
	type Args struct {
		Opt string `json:"opt,omitempty"`
	}
	ext, err := NewExtractor[Args](false)
	require.NoError(t, err)
	args, err := ext.Bind(nil)
	require.NoError(t, err)
	assert.Empty(t, args.Opt)
}

func TestExtractor_Bind_Validatable(t *testing.T) {
	t.Parallel()
	ext, err := NewExtractor[*pointerValidatableArgs](false)
	require.NoError(t, err)
	args, err := ext.Bind(map[string]any{"min": 1.0, "max": 10.0})
	require.NoError(t, err)
	require.NotNil(t, args)
	assert.Equal(t, 10, args.Max)

	_, err = ext.Bind(map[string]any{"min": 10.0, "max": 5.0})
	require.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "min must be <= max")
}

type rangeArgs struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

var rangeValidateCalls int

func (a rangeArgs) Validate() error {
	rangeValidateCalls++
	if a.Lo > a.Hi {
		return &ArgumentError{Reason: "lo must be <= hi", Err: ErrInvalidArguments}
	}
	return nil
}

func TestExtractor_Bind_ValidateOnceAndPassthrough(t *testing.T) {
	rangeValidateCalls = 0
	t.Cleanup(func() { rangeValidateCalls = 0 })
	ext, err := NewExtractor[rangeArgs](false)
	require.NoError(t, err)

	_, err = ext.Bind(map[string]any{"lo": 1.0, "hi": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 1, rangeValidateCalls)

	_, err = ext.Bind(map[string]any{"lo": 3.0, "hi": 2.0})
	var ae *ArgumentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "lo must be <= hi", ae.Reason, "argument errors from Validate are not rewrapped")
}

func TestExtractor_ParseAndValidate_InvalidJSON(t *testing.T) {
	t.Parallel()
	ext, err := NewExtractor[moveArgs](false)
	require.NoError(t, err)
	_, err = ext.ParseAndValidate([]byte(`{"from":`))
	require.Error(t, err)
	assert.True(t, IsArgumentError(err))
}

func TestExtractor_Schema_ReturnsCopy(t *testing.T) {
	t.Parallel()
	ext, err := NewExtractor[moveArgs](false)
	require.NoError(t, err)
	s := ext.Schema()
	s["mutated"] = true
	assert.NotContains(t, ext.Schema(), "mutated")
}

// Stored outputs reach typed functions through reference resolution, so the
// binding has to cope with Go values rather than decoded JSON.
func TestNewFunc_BindsStoredOutputs(t *testing.T) {
	var got moveArgs
	move, err := NewFunc(func(_ context.Context, in moveArgs) (point, error) {
		got = in
		return point{X: in.From.X + float64(in.Steps), Y: in.From.Y}, nil
	})
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc("move", move))
	reg.SetOutput("origin", point{X: 1, Y: 2})
	reg.SetOutput("count", 3.0)
	d := newTestDispatcher(reg)

	res, err := d.ResolveAndInvoke(context.Background(), Descriptor{
		Name:       "move",
		Parameters: map[string]any{"from": "origin", "steps": "count"},
		Returns:    []Return{{Name: "moved"}},
	})
	require.NoError(t, err)
	assert.Equal(t, moveArgs{From: point{X: 1, Y: 2}, Steps: 3}, got)
	assert.Equal(t, point{X: 4, Y: 2}, res)

	// The stored struct feeds the next call.
	_, err = d.ResolveAndInvoke(context.Background(), Descriptor{
		Name:       "move",
		Parameters: map[string]any{"from": "moved", "steps": 1.0},
		Returns:    []Return{{Name: "moved"}},
	})
	require.NoError(t, err)
	out, err := reg.Output("moved")
	require.NoError(t, err)
	assert.Equal(t, point{X: 5, Y: 2}, out)
}

func TestNewFunc_RejectsUnknownKeyFromPlan(t *testing.T) {
	calls := 0
	move, err := NewFunc(func(_ context.Context, _ moveArgs) (point, error) {
		calls++
		return point{}, nil
	})
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc("move", move))
	d := newTestDispatcher(reg)

	_, err = d.ParseAndInvoke(context.Background(),
		`{"name":"move","parameters":{"from":{"x":0,"y":0},"steps":1,"speed":9},"returns":[{"name":"p"}]}`)
	require.ErrorIs(t, err, ErrInvalidArguments)
	assert.Zero(t, calls)
	assert.Empty(t, reg.Outputs())
}
