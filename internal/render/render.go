// Package render turns form values into an image by running an external
// renderer script:
//
//	<interpreter> <script> --<flag> <value> ... --output_path <path>
//
// Values are passed as strings in the order of the form definition;
// defaults are substituted here and never stored in the session.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/formbot/internal/form"
)

// OutputFlag is always the last flag on the command line.
const OutputFlag = "output_path"

// ErrNoOutput is returned by BuildRequest when no output path is known.
var ErrNoOutput = errors.New("render: empty output path")

// Arg is one --flag value pair.
type Arg struct {
	Flag  string
	Value string
}

// Request is a fully resolved renderer invocation.
type Request struct {
	Script     string
	Args       []Arg
	OutputPath string
}

// Argv flattens the request to [script, --flag, value, ..., --output_path, path].
func (r Request) Argv() []string {
	argv := make([]string, 0, 1+2*len(r.Args)+2)
	argv = append(argv, r.Script)
	for _, a := range r.Args {
		argv = append(argv, "--"+a.Flag, a.Value)
	}
	return append(argv, "--"+OutputFlag, r.OutputPath)
}

// String is the command line for logs.
func (r Request) String() string {
	return strings.Join(r.Argv(), " ")
}

// Renderer produces the artifact described by a request and returns its path.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, req Request) (string, error)

// Render calls f.
func (f Func) Render(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// BuildRequest resolves the script and arguments for def.
//
// Forms whose fields carry their own script render one variant at a time:
// variant names the most recently edited variant field and falls back to
// the first one. Fields without a script are passed to every variant.
func BuildRequest(def form.Definition, values form.Values, variant, outputPath string) (Request, error) {
	if strings.TrimSpace(outputPath) == "" {
		return Request{}, ErrNoOutput
	}
	req := Request{Script: def.Script, OutputPath: outputPath}

	variants := def.VariantFields()
	var chosen string
	if len(variants) > 0 {
		chosen = variants[0].Name
		req.Script = variants[0].Script
		for _, f := range variants {
			if f.Name == variant {
				chosen = f.Name
				req.Script = f.Script
				break
			}
		}
	}
	if req.Script == "" {
		return Request{}, fmt.Errorf("render: %s has no script", def.Product)
	}

	req.Args = make([]Arg, 0, len(def.Fields))
	for _, f := range def.Fields {
		if f.Script != "" && f.Name != chosen {
			continue
		}
		req.Args = append(req.Args, Arg{Flag: f.RendererFlag(), Value: valueOrDefault(f, values)})
	}
	return req, nil
}

func valueOrDefault(f form.Field, values form.Values) string {
	if values.Filled(f.Name) {
		return strings.TrimSpace(values[f.Name])
	}
	return f.Default
}
