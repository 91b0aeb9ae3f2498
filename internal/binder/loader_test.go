package binder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/operror"
	"github.com/born-ml/opbind/internal/ops"
)

// tfGraph returns x -> SpaceToDepth -> DepthToSpace -> AddV2(x) with nodes
// listed consumers first.
func tfGraph() *ExternalGraph {
	return &ExternalGraph{
		Format:  mapping.FormatTensorFlow,
		Name:    "roundtrip",
		Inputs:  []string{"x"},
		Outputs: []string{"sum"},
		Nodes: []Node{
			{Name: "add", OpType: "AddV2", Inputs: []string{"back", "x"}, Outputs: []string{"sum"}},
			{Name: "d2s", OpType: "DepthToSpace", Inputs: []string{"packed"}, Outputs: []string{"back"},
				Attrs: attr.Bag{"block_size": attr.Int(2)}},
			{Name: "s2d", OpType: "SpaceToDepth", Inputs: []string{"x"}, Outputs: []string{"packed"},
				Attrs: attr.Bag{"block_size": attr.Int(2), "data_format": attr.String("NCHW")}},
		},
	}
}

func TestLoadOrdersNodes(t *testing.T) {
	im, err := Load(context.Background(), tfGraph(), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Empty(t, im.Skipped)

	names := make([]string, 0)
	for _, op := range im.Graph.Ops() {
		names = append(names, op.Name())
	}
	assert.Equal(t, []string{ops.SpaceToDepthName, ops.DepthToSpaceName, ops.AddName}, names)

	assert.Equal(t, []int64{2, 0}, im.Ops["s2d"].IntArgs())
	assert.Equal(t, []int64{2, 1}, im.Ops["d2s"].IntArgs())

	sum, ok := im.Output("sum")
	require.True(t, ok)
	producer, ok := im.Graph.Producer(sum)
	require.True(t, ok)
	assert.Same(t, im.Ops["add"], producer)
	assert.Equal(t, "sum", sum.Name())
}

func TestLoadFoldsConstants(t *testing.T) {
	src := &ExternalGraph{
		Format:  mapping.FormatONNX,
		Name:    "onehot",
		Inputs:  []string{"indices", "depth"},
		Outputs: []string{"y"},
		Constants: map[string]attr.Value{
			"depth":  attr.Ints(4),
			"values": attr.Floats(-1, 5),
		},
		Nodes: []Node{
			{Name: "oh", OpType: "OneHot", Inputs: []string{"indices", "depth", "values"}, Outputs: []string{"y"},
				Attrs: attr.Bag{"axis": attr.Int(0)}},
		},
	}

	im, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.NoError(t, err)

	op := im.Ops["oh"]
	assert.Equal(t, []int64{4, 0}, op.IntArgs())
	assert.Equal(t, []float64{5, -1}, op.FloatArgs())
	assert.Empty(t, im.Pending)

	// Constant graph inputs do not become placeholders.
	_, ok := im.Values["depth"]
	assert.False(t, ok)
}

func TestLoadConstantDataInput(t *testing.T) {
	src := &ExternalGraph{
		Format:    mapping.FormatONNX,
		Inputs:    []string{"x"},
		Outputs:   []string{"y"},
		Constants: map[string]attr.Value{"bias": attr.Floats(1, 2, 3)},
		Nodes: []Node{
			{Name: "add", OpType: "Add", Inputs: []string{"x", "bias"}, Outputs: []string{"y"}},
		},
	}

	im, err := Load(context.Background(), src, DefaultLoadOptions())
	require.NoError(t, err)

	bias, ok := im.Graph.Variable("bias")
	require.True(t, ok)
	assert.Equal(t, bias, im.Ops["add"].Inputs()[1])
}

func TestLoadPendingInputs(t *testing.T) {
	src := &ExternalGraph{
		Format:    mapping.FormatTensorFlow,
		Inputs:    []string{"indices", "on"},
		Outputs:   []string{"y"},
		Constants: map[string]attr.Value{"depth": attr.Int(3)},
		Nodes: []Node{
			{Name: "oh", OpType: "OneHot", Inputs: []string{"indices", "depth", "on"}, Outputs: []string{"y"}},
		},
	}

	im, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.NoError(t, err)
	require.Len(t, im.Pending, 1)
	assert.Equal(t, ops.FieldOn, im.Pending[0].Field)
	assert.Equal(t, []float64{1, 0}, im.Ops["oh"].FloatArgs())
}

func TestLoadStrictRejectsUnsupported(t *testing.T) {
	src := tfGraph()
	src.Nodes = append(src.Nodes,
		Node{Name: "conv", OpType: "Conv2D", Inputs: []string{"x"}, Outputs: []string{"c"}},
		Node{Name: "relu", OpType: "Relu", Inputs: []string{"c"}, Outputs: []string{"r"}},
	)

	_, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.ErrorIs(t, err, operror.ErrUnsupportedExternalOperator)
	assert.Contains(t, err.Error(), "Conv2D")
	assert.Contains(t, err.Error(), "Relu")
}

func TestLoadStrictFailsOnBadNode(t *testing.T) {
	src := tfGraph()
	src.Nodes[2].Attrs = attr.Bag{}

	_, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.ErrorIs(t, err, operror.ErrMissingAttribute)
	assert.Contains(t, err.Error(), `"s2d"`)
}

func TestLoadLenientSkipsNodes(t *testing.T) {
	src := tfGraph()
	src.Nodes = append(src.Nodes,
		Node{Name: "conv", OpType: "Conv2D", Inputs: []string{"x"}, Outputs: []string{"c"}},
		Node{Name: "zeros", OpType: "ZerosLike", Inputs: []string{"c"}, Outputs: []string{"z"}},
	)
	src.Outputs = append(src.Outputs, "z")

	im, err := Load(context.Background(), src, DefaultLoadOptions())
	require.NoError(t, err)

	require.Len(t, im.Skipped, 2)
	assert.Equal(t, "conv", im.Skipped[0].Name)
	require.ErrorIs(t, im.Skipped[0].Err, operror.ErrUnsupportedExternalOperator)
	assert.Equal(t, "zeros", im.Skipped[1].Name)

	assert.Len(t, im.Ops, 3)
	_, ok := im.Output("z")
	assert.False(t, ok)
	_, ok = im.Output("sum")
	assert.True(t, ok)
}

func TestLoadStrictMissingOutput(t *testing.T) {
	src := tfGraph()
	src.Outputs = []string{"nowhere"}

	_, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestLoadCustomOps(t *testing.T) {
	src := &ExternalGraph{
		Format:  mapping.FormatONNX,
		Inputs:  []string{"x"},
		Outputs: []string{"y"},
		Nodes:   []Node{{Name: "id", OpType: "Identity", Inputs: []string{"x"}, Outputs: []string{"y"}}},
	}

	_, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.ErrorIs(t, err, operror.ErrUnsupportedExternalOperator)

	im, err := Load(context.Background(), src, LoadOptions{StrictMode: true, CustomOps: []ops.Definition{identityDefinition()}})
	require.NoError(t, err)
	assert.Equal(t, "identity", im.Ops["id"].Name())

	_, err = Load(context.Background(), src, LoadOptions{CustomOps: []ops.Definition{{Name: "broken"}}})
	assert.Error(t, err)
}

func TestTopologicalSortKeepsIndependentOrder(t *testing.T) {
	nodes := []Node{
		{Name: "c", Inputs: []string{"b_out"}, Outputs: []string{"c_out"}},
		{Name: "a", Inputs: []string{"in"}, Outputs: []string{"a_out"}},
		{Name: "b", Inputs: []string{"a_out"}, Outputs: []string{"b_out"}},
		{Name: "d", Inputs: []string{"in"}, Outputs: []string{"d_out"}},
	}

	sorted := topologicalSort(nodes)
	names := make([]string, len(sorted))
	for i, n := range sorted {
		names[i] = n.Name
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
}

func TestLoadRejectsForeignDomain(t *testing.T) {
	src := &ExternalGraph{
		Format:  mapping.FormatONNX,
		Inputs:  []string{"x", "y"},
		Outputs: []string{"sum"},
		Nodes: []Node{
			{Name: "custom", OpType: "Add", Domain: "com.example", Inputs: []string{"x", "y"}, Outputs: []string{"sum"}},
		},
	}

	_, err := Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.ErrorIs(t, err, operror.ErrUnsupportedExternalOperator)
	assert.Contains(t, err.Error(), "com.example::Add")

	im, err := Load(context.Background(), src, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, im.Skipped, 1)
	require.ErrorIs(t, im.Skipped[0].Err, operror.ErrUnsupportedExternalOperator)
	assert.Empty(t, im.Ops)

	// The explicit default domain is the built-in operator set.
	src.Nodes[0].Domain = "ai.onnx"
	im, err = Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.NoError(t, err)
	assert.Equal(t, ops.AddName, im.Ops["custom"].Name())
}

func TestLoadCustomDomainOps(t *testing.T) {
	def := identityDefinition()
	def.Mappings = []mapping.Table{
		{Format: mapping.FormatONNX, External: QualifiedName("com.example", "Identity"), Internal: "identity"},
	}
	src := &ExternalGraph{
		Format:  mapping.FormatONNX,
		Inputs:  []string{"x"},
		Outputs: []string{"y"},
		Nodes: []Node{
			{Name: "id", OpType: "Identity", Domain: "com.example", Inputs: []string{"x"}, Outputs: []string{"y"}},
		},
	}

	im, err := Load(context.Background(), src, LoadOptions{StrictMode: true, CustomOps: []ops.Definition{def}})
	require.NoError(t, err)
	assert.Equal(t, "identity", im.Ops["id"].Name())

	// Registered under its domain only.
	src.Nodes[0].Domain = ""
	_, err = Load(context.Background(), src, LoadOptions{StrictMode: true, CustomOps: []ops.Definition{def}})
	require.ErrorIs(t, err, operror.ErrUnsupportedExternalOperator)
}

func TestLoadKeepsUnnamedNodes(t *testing.T) {
	src := &ExternalGraph{
		Format:  mapping.FormatONNX,
		Inputs:  []string{"x"},
		Outputs: []string{"y"},
		Nodes: []Node{
			{OpType: "DepthToSpace", Inputs: []string{"packed"}, Outputs: []string{"y"},
				Attrs: attr.Bag{"blocksize": attr.Int(2)}},
			{OpType: "SpaceToDepth", Inputs: []string{"x"}, Outputs: []string{"packed"},
				Attrs: attr.Bag{"blocksize": attr.Int(2)}},
		},
	}

	im, err := Load(context.Background(), src, DefaultLoadOptions())
	require.NoError(t, err)

	assert.Len(t, im.Graph.Ops(), 2)
	require.Len(t, im.Ops, 2)
	assert.Equal(t, []string{"packed", "y"}, im.Order)
	assert.Equal(t, ops.SpaceToDepthName, im.Ops["packed"].Name())
	assert.Equal(t, ops.DepthToSpaceName, im.Ops["y"].Name())
}

func TestLoadOrderFollowsImport(t *testing.T) {
	im, err := Load(context.Background(), tfGraph(), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"s2d", "d2s", "add"}, im.Order)
}

func TestLoadFailedNodeLeavesGraphUnchanged(t *testing.T) {
	src := &ExternalGraph{
		Format:    mapping.FormatTensorFlow,
		Outputs:   []string{"y"},
		Constants: map[string]attr.Value{"image": attr.Floats(1, 2, 3, 4)},
		Nodes: []Node{
			{Name: "s2d", OpType: "SpaceToDepth", Inputs: []string{"image"}, Outputs: []string{"y"},
				Attrs: attr.Bag{"block_size": attr.Int(2), "data_format": attr.String("NCDHW")}},
		},
	}

	im, err := Load(context.Background(), src, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, im.Skipped, 1)
	require.ErrorIs(t, im.Skipped[0].Err, operror.ErrInvalidConfiguration)

	_, ok := im.Graph.Variable("image")
	assert.False(t, ok)
	assert.Empty(t, im.Graph.Variables())
	assert.Empty(t, im.Graph.Ops())

	_, err = Load(context.Background(), src, LoadOptions{StrictMode: true})
	require.ErrorIs(t, err, operror.ErrInvalidConfiguration)
}
