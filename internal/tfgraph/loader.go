package tfgraph

import (
	"context"
	"fmt"
	"path"
	"strings"

	"k8s.io/klog/v2"

	"github.com/born-ml/opbind/internal/binder"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/source"
)

// Load reads a binary GraphDef from a local path or gs:// URI and imports it.
// The graph is named after the file.
func Load(ctx context.Context, uri string, opts binder.LoadOptions) (*binder.Imported, error) {
	data, err := source.ReadFile(ctx, uri)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(path.Base(uri), path.Ext(uri))
	return LoadFromBytes(ctx, name, data, opts)
}

// LoadFromBytes imports a binary GraphDef held in memory.
func LoadFromBytes(ctx context.Context, name string, data []byte, opts binder.LoadOptions) (*binder.Imported, error) {
	log := klog.FromContext(ctx)

	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	g, err := def.ExternalGraph(name)
	if err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	log.V(1).Info("decoded TensorFlow graph", "graph", name, "producer", def.Producer,
		"nodes", len(g.Nodes), "inputs", len(g.Inputs), "constants", len(g.Constants))

	return binder.Load(ctx, g, opts)
}

// ListSupportedOps returns all supported TensorFlow operators.
func ListSupportedOps() []string {
	return binder.Default().SupportedOps(mapping.FormatTensorFlow)
}
