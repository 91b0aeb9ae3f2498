package onnx

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/born-ml/opbind/internal/binder"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/source"
)

// Load reads an ONNX model from a local path or gs:// URI and imports its graph.
//
// Example:
//
//	imported, err := onnx.Load(ctx, "gs://models/s2d.onnx", binder.DefaultLoadOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, _ := imported.Output("y")
func Load(ctx context.Context, uri string, opts binder.LoadOptions) (*binder.Imported, error) {
	data, err := source.ReadFile(ctx, uri)
	if err != nil {
		return nil, err
	}
	return LoadFromBytes(ctx, data, opts)
}

// LoadFromBytes imports an ONNX model held in memory.
func LoadFromBytes(ctx context.Context, data []byte, opts binder.LoadOptions) (*binder.Imported, error) {
	log := klog.FromContext(ctx)

	proto, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX data: %w", err)
	}
	g, err := proto.ExternalGraph()
	if err != nil {
		return nil, fmt.Errorf("failed to decode ONNX graph: %w", err)
	}

	log.V(1).Info("decoded ONNX model", "producer", proto.ProducerName, "irVersion", proto.IRVersion,
		"opset", proto.OpsetVersion(), "nodes", len(g.Nodes), "constants", len(g.Constants))

	return binder.Load(ctx, g, opts)
}

// ModelInfo contains basic information about an ONNX model without importing it.
type ModelInfo struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	InputNames      []string
	OutputNames     []string
	NodeCount       int
	WeightCount     int
}

// GetModelInfo extracts basic info from ONNX data.
func GetModelInfo(data []byte) (*ModelInfo, error) {
	proto, err := Parse(data)
	if err != nil {
		return nil, err
	}

	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		OpsetVersion:    proto.OpsetVersion(),
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
	}

	if proto.Graph != nil {
		// Inputs backed by an initializer are weights, not model inputs.
		initNames := make(map[string]bool)
		for i := range proto.Graph.Initializers {
			initNames[proto.Graph.Initializers[i].Name] = true
		}
		for _, name := range proto.Graph.Inputs {
			if !initNames[name] {
				info.InputNames = append(info.InputNames, name)
			}
		}

		info.OutputNames = append(info.OutputNames, proto.Graph.Outputs...)
		info.NodeCount = len(proto.Graph.Nodes)
		info.WeightCount = len(proto.Graph.Initializers)
	}

	return info, nil
}

// ListSupportedOps returns all supported ONNX operators.
func ListSupportedOps() []string {
	return binder.Default().SupportedOps(mapping.FormatONNX)
}
