// Package main provides the opbind CLI: it imports ONNX and TensorFlow graphs
// into operator records and prints what was bound.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"k8s.io/klog/v2"

	"github.com/born-ml/opbind/autodiff"
	"github.com/born-ml/opbind/graph"
	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/onnx"
	"github.com/born-ml/opbind/tensorflow"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type options struct {
	format string
	strict bool
	grad   bool
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("opbind", flag.ContinueOnError)
	klog.InitFlags(fs)

	var opts options
	fs.StringVar(&opts.format, "format", "", "graph format: onnx or tensorflow (default: inferred from the file extension)")
	fs.BoolVar(&opts.strict, "strict", false, "fail on the first node that cannot be imported")
	fs.BoolVar(&opts.grad, "grad", false, "differentiate every graph output and print the gradient operators")
	fs.Usage = func() { usage(fs.Output(), fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd := fs.Arg(0); cmd {
	case "version":
		fmt.Fprintf(out, "opbind %s\n", version)
		return nil
	case "ops":
		printOps(out)
		return nil
	case "inspect":
		if fs.NArg() != 2 {
			return fmt.Errorf("usage: opbind [flags] inspect <path|gs://bucket/key>")
		}
		return inspect(ctx, fs.Arg(1), opts, out)
	case "":
		usage(out, fs)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "opbind %s - graph import binder\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                 Show version")
	fmt.Fprintln(w, "  ops                     List importable operators per format")
	fmt.Fprintln(w, "  inspect <path|gs://>    Import a graph and print its operator records")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func printOps(out io.Writer) {
	fmt.Fprintf(out, "onnx:       %s\n", strings.Join(onnx.ListSupportedOps(), " "))
	fmt.Fprintf(out, "tensorflow: %s\n", strings.Join(tensorflow.ListSupportedOps(), " "))
}

// detectFormat maps the -format flag, or the file extension when the flag is
// unset, to a format.
func detectFormat(format, uri string) (mapping.Format, error) {
	if format != "" {
		return mapping.ParseFormat(strings.ToLower(format))
	}
	switch strings.ToLower(path.Ext(uri)) {
	case ".onnx":
		return mapping.FormatONNX, nil
	case ".pb", ".graphdef":
		return mapping.FormatTensorFlow, nil
	}
	return "", fmt.Errorf("cannot infer format of %q: pass -format", uri)
}

func load(ctx context.Context, uri string, opts options) (*onnx.Imported, error) {
	format, err := detectFormat(opts.format, uri)
	if err != nil {
		return nil, err
	}

	klog.FromContext(ctx).V(1).Info("importing graph", "uri", uri, "format", format, "strict", opts.strict)

	if format == mapping.FormatONNX {
		lo := onnx.DefaultLoadOptions()
		lo.StrictMode = opts.strict
		return onnx.Load(ctx, uri, lo)
	}
	lo := tensorflow.DefaultLoadOptions()
	lo.StrictMode = opts.strict
	return tensorflow.Load(ctx, uri, lo)
}

func inspect(ctx context.Context, uri string, opts options, out io.Writer) error {
	im, err := load(ctx, uri, opts)
	if err != nil {
		return err
	}

	g := im.Graph
	fmt.Fprintf(out, "graph %s: %d operators\n", g.Name(), len(g.Ops()))

	for _, name := range im.Order {
		printOp(out, name, im.Ops[name])
	}

	for _, p := range im.Pending {
		fmt.Fprintf(out, "pending  %s.%s <- input %d (%s)\n", p.Node, p.Field, p.Position, p.Edge)
	}
	for _, s := range im.Skipped {
		fmt.Fprintf(out, "skipped  %s (%s): %v\n", s.Name, s.OpType, s.Err)
	}

	if opts.grad {
		return printGradients(out, g)
	}
	return nil
}

func printOp(out io.Writer, name string, op graph.Op) {
	inputs := make([]string, len(op.Inputs()))
	for i, in := range op.Inputs() {
		inputs[i] = in.Name()
	}
	fmt.Fprintf(out, "op       %s = %s(%s) ints=%v floats=%v\n",
		name, op.Name(), strings.Join(inputs, ", "), op.IntArgs(), op.FloatArgs())
}

// printGradients seeds every sink variable with a placeholder and prints the
// operators the backward passes append.
func printGradients(out io.Writer, g *graph.Graph) error {
	consumed := make(map[*graph.Variable]bool)
	for _, op := range g.Ops() {
		for _, in := range op.Inputs() {
			consumed[in] = true
		}
	}
	var sinks []*graph.Variable
	for _, op := range g.Ops() {
		if v, ok := g.Output(op); ok && !consumed[v] {
			sinks = append(sinks, v)
		}
	}

	before := len(g.Ops())
	for _, y := range sinks {
		seed, err := g.Placeholder("d_" + y.Name())
		if err != nil {
			return err
		}
		if _, err := autodiff.Backward(y, seed); err != nil {
			return fmt.Errorf("differentiating %s: %w", y.Name(), err)
		}
	}

	for _, op := range g.Ops()[before:] {
		name := ""
		if v, ok := g.Output(op); ok {
			name = v.Name()
		}
		printOp(out, name, op)
	}
	return nil
}
