package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/ops"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Same(t, r, Default())

	assert.Equal(t, []string{"Add", "AddV2", "DepthToSpace", "OneHot", "SpaceToDepth", "ZerosLike"},
		r.SupportedOps(mapping.FormatTensorFlow))
	assert.Equal(t, []string{"Add", "DepthToSpace", "OneHot", "SpaceToDepth"},
		r.SupportedOps(mapping.FormatONNX))

	def, table, err := r.Lookup(mapping.FormatTensorFlow, "AddV2")
	require.NoError(t, err)
	assert.Equal(t, ops.AddName, def.Name)
	assert.Equal(t, ops.AddName, table.Internal)

	names := make([]string, 0)
	for _, d := range r.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"add", "depth_to_space", "onehot", "space_to_depth", "zeros_like"}, names)

	_, ok := r.Definition(ops.OneHotName)
	assert.True(t, ok)
	assert.NotNil(t, r.Descriptor())
}

// identity is a custom operator registered on top of the built-ins.
type identity struct {
	x *graph.Variable
}

func (op *identity) Name() string                          { return "identity" }
func (op *identity) Inputs() []*graph.Variable             { return []*graph.Variable{op.x} }
func (op *identity) IntArgs() []int64                      { return nil }
func (op *identity) FloatArgs() []float64                  { return nil }
func (op *identity) Fields() attr.Bag                      { return attr.Bag{} }
func (op *identity) ExternalNames(mapping.Format) []string { return []string{"Identity"} }
func (op *identity) Gradient(g []*graph.Variable) ([]*graph.Variable, error) {
	return g, nil
}

func identityDefinition() ops.Definition {
	return ops.Definition{
		Name:   "identity",
		Inputs: 1,
		Mappings: []mapping.Table{
			{Format: mapping.FormatONNX, External: "Identity", Internal: "identity"},
		},
		Build: func(inputs []*graph.Variable, _ attr.Bag) (ops.Operator, error) {
			return &identity{x: inputs[0]}, nil
		},
	}
}

func TestCustomRegistry(t *testing.T) {
	r, err := NewRegistry(identityDefinition())
	require.NoError(t, err)
	assert.Contains(t, r.SupportedOps(mapping.FormatONNX), "Identity")

	// The default registry is not affected.
	assert.NotContains(t, Default().SupportedOps(mapping.FormatONNX), "Identity")
}

func TestNewRegistryRejectsInvalidDefinitions(t *testing.T) {
	noBuild := identityDefinition()
	noBuild.Build = nil

	wrongTarget := identityDefinition()
	wrongTarget.Mappings = []mapping.Table{{Format: mapping.FormatONNX, External: "Identity", Internal: "other"}}

	undeclared := identityDefinition()
	undeclared.Mappings = []mapping.Table{{
		Format: mapping.FormatONNX, External: "Identity", Internal: "identity",
		Fields: map[string]mapping.Source{"k": mapping.Attribute("k")},
	}}

	unsourced := identityDefinition()
	unsourced.Fields = []ops.FieldSpec{{Name: "k", Kind: attr.KindInt}}

	duplicateName := identityDefinition()
	duplicateName.Name = ops.OneHotName
	duplicateName.Mappings = nil

	duplicateExternal := identityDefinition()
	duplicateExternal.Mappings = []mapping.Table{{Format: mapping.FormatONNX, External: "Add", Internal: "identity"}}

	tests := map[string]ops.Definition{
		"no name":            {Build: identityDefinition().Build},
		"no build":           noBuild,
		"wrong target":       wrongTarget,
		"undeclared field":   undeclared,
		"unsourced required": unsourced,
		"duplicate name":     duplicateName,
		"duplicate external": duplicateExternal,
	}

	for name, def := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(def)
			assert.Error(t, err)
		})
	}
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		domain, opType, want string
	}{
		{"", "Add", "Add"},
		{"ai.onnx", "Add", "Add"},
		{"com.example", "Add", "com.example::Add"},
		{"com.microsoft", "FusedMatMul", "com.microsoft::FusedMatMul"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualifiedName(tt.domain, tt.opType))
	}

	_, _, err := Default().LookupNode(mapping.FormatONNX, "com.example", "SpaceToDepth")
	require.Error(t, err)
	def, _, err := Default().LookupNode(mapping.FormatONNX, "ai.onnx", "SpaceToDepth")
	require.NoError(t, err)
	assert.Equal(t, ops.SpaceToDepthName, def.Name)
}
