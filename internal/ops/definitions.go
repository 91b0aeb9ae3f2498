package ops

import (
	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/graph"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/operror"
)

// Internal operator names.
const (
	SpaceToDepthName = "space_to_depth"
	DepthToSpaceName = "depth_to_space"
	OneHotName       = "onehot"
	AddName          = "add"
	ZerosLikeName    = "zeros_like"
)

// FieldSpec declares one configuration field of an operator type.
type FieldSpec struct {
	Name    string
	Kind    attr.Kind
	Default attr.Value // Zero value: the field is required
	Policy  string     // Defaulting policy, for diagnostics and docs
}

// Required reports whether import must find a value for the field.
func (f FieldSpec) Required() bool {
	return f.Default.IsZero()
}

// BuildFunc constructs an operator from its data inputs and resolved fields.
type BuildFunc func(inputs []*graph.Variable, fields attr.Bag) (Operator, error)

// Definition describes an operator type to the import machinery: its fields,
// how each external format supplies them, and the factory that runs the same
// constructor the native path uses.
type Definition struct {
	Name     string
	Inputs   int // Number of data (non-configuration) inputs
	Fields   []FieldSpec
	Mappings []mapping.Table
	Build    BuildFunc
}

// Field returns the declaration of a named field.
func (d Definition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

var blockFields = []FieldSpec{
	{Name: FieldBlockSize, Kind: attr.KindInt, Policy: "required"},
	{
		Name:    FieldDataFormat,
		Kind:    attr.KindString,
		Default: attr.String(DefaultDataFormat.String()),
		Policy:  "absent or empty defaults to NHWC (channel-last, flag 1)",
	},
}

var spaceToDepthTables = []mapping.Table{
	{
		Format:   mapping.FormatTensorFlow,
		External: "SpaceToDepth",
		Internal: SpaceToDepthName,
		Fields: map[string]mapping.Source{
			FieldBlockSize:  mapping.Attribute("block_size"),
			FieldDataFormat: mapping.Attribute("data_format"),
		},
	},
	{
		Format:   mapping.FormatONNX,
		External: "SpaceToDepth",
		Internal: SpaceToDepthName,
		Fields: map[string]mapping.Source{
			FieldBlockSize:  mapping.Attribute("blocksize"),
			FieldDataFormat: mapping.Implicit(attr.String(NCHW.String())),
		},
	},
}

var depthToSpaceTables = []mapping.Table{
	{
		Format:   mapping.FormatTensorFlow,
		External: "DepthToSpace",
		Internal: DepthToSpaceName,
		Fields: map[string]mapping.Source{
			FieldBlockSize:  mapping.Attribute("block_size"),
			FieldDataFormat: mapping.Attribute("data_format"),
			FieldMode:       mapping.Implicit(attr.String(ModeDCR)),
		},
	},
	{
		Format:   mapping.FormatONNX,
		External: "DepthToSpace",
		Internal: DepthToSpaceName,
		Fields: map[string]mapping.Source{
			FieldBlockSize:  mapping.Attribute("blocksize"),
			FieldDataFormat: mapping.Implicit(attr.String(NCHW.String())),
			FieldMode:       mapping.Attribute("mode"),
		},
	},
}

var oneHotTables = []mapping.Table{
	{
		Format:   mapping.FormatTensorFlow,
		External: "OneHot",
		Internal: OneHotName,
		Fields: map[string]mapping.Source{
			FieldDepth: mapping.Input(1),
			FieldOn:    mapping.Input(2),
			FieldOff:   mapping.Input(3),
			FieldAxis:  mapping.Attribute("axis"),
		},
	},
	{
		// ONNX packs [off, on] into a single "values" input.
		Format:   mapping.FormatONNX,
		External: "OneHot",
		Internal: OneHotName,
		Fields: map[string]mapping.Source{
			FieldDepth: mapping.Input(1),
			FieldOff:   mapping.InputElement(2, 0),
			FieldOn:    mapping.InputElement(2, 1),
			FieldAxis:  mapping.Attribute("axis"),
		},
	},
}

var addTables = []mapping.Table{
	{Format: mapping.FormatTensorFlow, External: "AddV2", Internal: AddName},
	{Format: mapping.FormatTensorFlow, External: "Add", Internal: AddName},
	{Format: mapping.FormatONNX, External: "Add", Internal: AddName},
}

var zerosLikeTables = []mapping.Table{
	{Format: mapping.FormatTensorFlow, External: "ZerosLike", Internal: ZerosLikeName},
}

// Definitions returns the built-in operator definitions.
func Definitions() []Definition {
	return []Definition{
		{
			Name:     SpaceToDepthName,
			Inputs:   1,
			Fields:   blockFields,
			Mappings: spaceToDepthTables,
			Build:    buildSpaceToDepth,
		},
		{
			Name:   DepthToSpaceName,
			Inputs: 1,
			Fields: append(append([]FieldSpec{}, blockFields...), FieldSpec{
				Name:    FieldMode,
				Kind:    attr.KindString,
				Default: attr.String(ModeDCR),
				Policy:  "absent defaults to DCR; CRD is rejected",
			}),
			Mappings: depthToSpaceTables,
			Build:    buildDepthToSpace,
		},
		{
			Name:   OneHotName,
			Inputs: 1,
			Fields: []FieldSpec{
				{Name: FieldDepth, Kind: attr.KindInt, Policy: "required"},
				{Name: FieldAxis, Kind: attr.KindInt, Default: attr.Int(DefaultOneHotAxis), Policy: "absent defaults to -1 (innermost)"},
				{Name: FieldOn, Kind: attr.KindFloat, Default: attr.Float(DefaultOneHotOn), Policy: "absent defaults to 1.0"},
				{Name: FieldOff, Kind: attr.KindFloat, Default: attr.Float(DefaultOneHotOff), Policy: "absent defaults to 0.0"},
			},
			Mappings: oneHotTables,
			Build:    buildOneHot,
		},
		{
			Name:     AddName,
			Inputs:   2,
			Mappings: addTables,
			Build:    buildAdd,
		},
		{
			Name:     ZerosLikeName,
			Inputs:   1,
			Mappings: zerosLikeTables,
			Build:    buildZerosLike,
		},
	}
}

func requireInt(op string, fields attr.Bag, name string) (int64, error) {
	v, err := requireField(op, fields, name, attr.KindInt)
	return v.I, err
}

func requireFloat(op string, fields attr.Bag, name string) (float64, error) {
	v, err := requireField(op, fields, name, attr.KindFloat)
	return v.F, err
}

func requireString(op string, fields attr.Bag, name string) (string, error) {
	v, err := requireField(op, fields, name, attr.KindString)
	return v.S, err
}

func requireField(op string, fields attr.Bag, name string, kind attr.Kind) (attr.Value, error) {
	raw, ok := fields.Get(name)
	if !ok {
		return attr.Value{}, operror.MissingAttribute(op, name, name)
	}
	v, ok := raw.Convert(kind)
	if !ok {
		return attr.Value{}, operror.InvalidField(op, name, raw, "want "+kind.String())
	}
	return v, nil
}
