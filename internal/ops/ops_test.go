package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/operror"
)

func placeholder(t *testing.T, g *graph.Graph, name string) *graph.Variable {
	t.Helper()
	v, err := g.Placeholder(name)
	require.NoError(t, err)
	return v
}

func TestSpaceToDepthLayoutFlag(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")

	tests := []struct {
		format string
		want   []int64
	}{
		{"NHWC", []int64{2, 1}},
		{"NCHW", []int64{2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			op, err := NewSpaceToDepth(x, 2, tt.format)
			require.NoError(t, err)
			assert.Equal(t, SpaceToDepthName, op.Name())
			assert.Equal(t, tt.want, op.IntArgs())
			assert.Empty(t, op.FloatArgs())

			inv, err := NewDepthToSpace(x, 2, tt.format)
			require.NoError(t, err)
			assert.Equal(t, DepthToSpaceName, inv.Name())
			assert.Equal(t, tt.want, inv.IntArgs())
		})
	}
}

func TestUnknownLayoutFails(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")

	for _, format := range []string{"NDHWC", "nhwc", ""} {
		s2d, err := NewSpaceToDepth(x, 2, format)
		require.ErrorIs(t, err, operror.ErrInvalidConfiguration)
		assert.Nil(t, s2d)

		d2s, err := NewDepthToSpace(x, 2, format)
		require.ErrorIs(t, err, operror.ErrInvalidConfiguration)
		assert.Nil(t, d2s)
	}

	var cfgErr *operror.ConfigError
	_, err := NewSpaceToDepth(x, 2, "CHWN")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, FieldDataFormat, cfgErr.Field)
	assert.Equal(t, "CHWN", cfgErr.Value)
}

func TestDepthToSpaceRejectsCRD(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")

	op, err := NewDepthToSpaceWithMode(x, 2, "NCHW", "CRD")
	require.ErrorIs(t, err, operror.ErrInvalidConfiguration)
	assert.Nil(t, op)
}

func TestOneHotPositionalOrder(t *testing.T) {
	g := graph.New("g")
	indices := placeholder(t, g, "indices")

	short, err := NewOneHot(indices, 10)
	require.NoError(t, err)
	full, err := NewOneHotWithValues(indices, 10, -1, 1.0, 0.0)
	require.NoError(t, err)

	for _, op := range []*OneHot{short, full} {
		assert.Equal(t, []int64{10, -1}, op.IntArgs())
		assert.Equal(t, []float64{1.0, 0.0}, op.FloatArgs())
	}

	custom, err := NewOneHotWithValues(indices, 4, 0, 5, -5)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 0}, custom.IntArgs())
	assert.Equal(t, []float64{5, -5}, custom.FloatArgs())
	assert.Equal(t, 4, custom.Depth())
	assert.Equal(t, 0, custom.Axis())
	assert.Equal(t, 5.0, custom.On())
	assert.Equal(t, -5.0, custom.Off())
}

func TestArgsAreCopies(t *testing.T) {
	g := graph.New("g")
	indices := placeholder(t, g, "indices")

	op, err := NewOneHot(indices, 3)
	require.NoError(t, err)

	op.IntArgs()[0] = 99
	op.FloatArgs()[0] = 99
	op.Inputs()[0] = nil

	assert.Equal(t, []int64{3, -1}, op.IntArgs())
	assert.Equal(t, []float64{1, 0}, op.FloatArgs())
	assert.Same(t, indices, op.Inputs()[0])
}

func TestNilInputRejected(t *testing.T) {
	_, err := NewSpaceToDepth(nil, 2, "NHWC")
	assert.Error(t, err)

	_, err = NewAdd(nil, nil)
	assert.Error(t, err)
}

func TestInverseGradientLaw(t *testing.T) {
	for _, format := range []string{"NCHW", "NHWC"} {
		t.Run(format, func(t *testing.T) {
			g := graph.New("g")
			x := placeholder(t, g, "x")

			fwd, err := NewSpaceToDepth(x, 3, format)
			require.NoError(t, err)
			_, err = Apply(fwd)
			require.NoError(t, err)

			dy := placeholder(t, g, "dy")
			grads, err := fwd.Gradient([]*graph.Variable{dy})
			require.NoError(t, err)
			require.Len(t, grads, 1)
			assert.Same(t, g, grads[0].Graph())

			producer, ok := g.Producer(grads[0])
			require.True(t, ok)
			inv, ok := producer.(*DepthToSpace)
			require.True(t, ok, "gradient of space_to_depth must be depth_to_space, got %T", producer)
			assert.Equal(t, fwd.BlockSize(), inv.BlockSize())
			assert.Equal(t, fwd.DataFormat(), inv.DataFormat())
			assert.Equal(t, fwd.IntArgs(), inv.IntArgs())
			assert.Same(t, dy, inv.Inputs()[0])

			// And back again.
			grads, err = inv.Gradient([]*graph.Variable{dy})
			require.NoError(t, err)
			producer, ok = g.Producer(grads[0])
			require.True(t, ok)
			again, ok := producer.(*SpaceToDepth)
			require.True(t, ok)
			assert.Equal(t, fwd.IntArgs(), again.IntArgs())
		})
	}
}

func TestGradientRejectsForeignGraph(t *testing.T) {
	g1 := graph.New("g1")
	g2 := graph.New("g2")
	x := placeholder(t, g1, "x")
	dy := placeholder(t, g2, "dy")

	op, err := NewSpaceToDepth(x, 2, "NHWC")
	require.NoError(t, err)

	_, err = op.Gradient([]*graph.Variable{dy})
	assert.Error(t, err)
	assert.Empty(t, g1.Ops())
	assert.Empty(t, g2.Ops())

	_, err = op.Gradient(nil)
	assert.Error(t, err)
}

func TestOneHotGradientIsZeros(t *testing.T) {
	g := graph.New("g")
	indices := placeholder(t, g, "indices")
	dy := placeholder(t, g, "dy")

	op, err := NewOneHot(indices, 5)
	require.NoError(t, err)

	grads, err := op.Gradient([]*graph.Variable{dy})
	require.NoError(t, err)
	require.Len(t, grads, 1)

	producer, ok := g.Producer(grads[0])
	require.True(t, ok)
	zeros, ok := producer.(*ZerosLike)
	require.True(t, ok)
	assert.Same(t, indices, zeros.Inputs()[0])
}

func TestAddGradientPassesThrough(t *testing.T) {
	g := graph.New("g")
	a := placeholder(t, g, "a")
	b := placeholder(t, g, "b")
	dy := placeholder(t, g, "dy")

	op, err := NewAdd(a, b)
	require.NoError(t, err)

	grads, err := op.Gradient([]*graph.Variable{dy})
	require.NoError(t, err)
	assert.Equal(t, []*graph.Variable{dy, dy}, grads)
	assert.Empty(t, g.Ops())
}

func TestZerosLikeGradient(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")
	dy := placeholder(t, g, "dy")

	op, err := NewZerosLike(x)
	require.NoError(t, err)

	grads, err := op.Gradient([]*graph.Variable{dy})
	require.NoError(t, err)
	producer, ok := g.Producer(grads[0])
	require.True(t, ok)
	assert.Equal(t, ZerosLikeName, producer.Name())
}

func TestExternalNames(t *testing.T) {
	g := graph.New("g")
	a := placeholder(t, g, "a")

	add, err := NewAdd(a, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"AddV2", "Add"}, add.ExternalNames(mapping.FormatTensorFlow))
	assert.Equal(t, []string{"Add"}, add.ExternalNames(mapping.FormatONNX))

	zeros, err := NewZerosLike(a)
	require.NoError(t, err)
	assert.Empty(t, zeros.ExternalNames(mapping.FormatONNX))

	s2d, err := NewSpaceToDepth(a, 2, "NHWC")
	require.NoError(t, err)
	assert.Equal(t, []string{"SpaceToDepth"}, s2d.ExternalNames(mapping.FormatTensorFlow))
}

func TestDefinitionsRebuildFromFields(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")
	y := placeholder(t, g, "y")

	s2d, err := NewSpaceToDepth(x, 4, "NCHW")
	require.NoError(t, err)
	d2s, err := NewDepthToSpace(x, 2, "NHWC")
	require.NoError(t, err)
	oneHot, err := NewOneHotWithValues(x, 7, 1, 2.5, -1)
	require.NoError(t, err)
	add, err := NewAdd(x, y)
	require.NoError(t, err)
	zeros, err := NewZerosLike(x)
	require.NoError(t, err)

	natives := map[string]Operator{
		SpaceToDepthName: s2d,
		DepthToSpaceName: d2s,
		OneHotName:       oneHot,
		AddName:          add,
		ZerosLikeName:    zeros,
	}

	defs := Definitions()
	require.Len(t, defs, len(natives))
	for _, def := range defs {
		t.Run(def.Name, func(t *testing.T) {
			native, ok := natives[def.Name]
			require.True(t, ok)

			rebuilt, err := def.Build(native.Inputs(), native.Fields())
			require.NoError(t, err)
			assert.Equal(t, native.Name(), rebuilt.Name())
			assert.Equal(t, native.IntArgs(), rebuilt.IntArgs())
			assert.Equal(t, native.FloatArgs(), rebuilt.FloatArgs())
			assert.True(t, native.Fields().Equal(rebuilt.Fields()))
			assert.Len(t, native.Inputs(), def.Inputs)

			for _, m := range def.Mappings {
				assert.Equal(t, def.Name, m.Internal)
				for field := range m.Fields {
					_, ok := def.Field(field)
					assert.True(t, ok, "%s maps unknown field %q", m.External, field)
				}
			}
		})
	}
}

func TestBuildReportsMissingAndMistypedFields(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")

	_, err := buildSpaceToDepth([]*graph.Variable{x}, attr.Bag{FieldDataFormat: attr.String("NHWC")})
	require.ErrorIs(t, err, operror.ErrMissingAttribute)

	_, err = buildOneHot([]*graph.Variable{x}, attr.Bag{
		FieldDepth: attr.String("ten"),
		FieldAxis:  attr.Int(-1),
		FieldOn:    attr.Float(1),
		FieldOff:   attr.Float(0),
	})
	require.ErrorIs(t, err, operror.ErrInvalidConfiguration)
}

func TestFieldSpecRequired(t *testing.T) {
	for _, def := range Definitions() {
		for _, f := range def.Fields {
			switch f.Name {
			case FieldBlockSize, FieldDepth:
				assert.True(t, f.Required(), "%s.%s", def.Name, f.Name)
			default:
				assert.False(t, f.Required(), "%s.%s", def.Name, f.Name)
			}
		}
	}
}

func TestApply(t *testing.T) {
	g := graph.New("g")
	x := placeholder(t, g, "x")

	op, err := NewSpaceToDepth(x, 2, "NHWC")
	require.NoError(t, err)
	y, err := Apply(op)
	require.NoError(t, err)

	producer, ok := g.Producer(y)
	require.True(t, ok)
	assert.Same(t, op, producer)
}
