// Package batch resolves command line inputs and outputs into the ordered
// list of work units the converter processes.
package batch

import "imco/format"

type OutputKind int

const (
	OutputAbsent OutputKind = iota
	OutputPath
	OutputFormatOnly
	OutputDirectory
)

func (k OutputKind) String() string {
	switch k {
	case OutputPath:
		return "path"
	case OutputFormatOnly:
		return "format"
	case OutputDirectory:
		return "directory"
	}
	return "absent"
}

// OutputSpec says where a converted file goes. Path is set for OutputPath
// and OutputDirectory, Format for OutputFormatOnly.
type OutputSpec struct {
	Kind   OutputKind
	Path   string
	Format format.Format
}

func ExplicitPath(path string) OutputSpec {
	return OutputSpec{Kind: OutputPath, Path: path}
}

func ExplicitFormatOnly(f format.Format) OutputSpec {
	return OutputSpec{Kind: OutputFormatOnly, Format: f}
}

func Directory(path string) OutputSpec {
	return OutputSpec{Kind: OutputDirectory, Path: path}
}

// WorkUnit is one conversion request. A zero InputFormat or OutputFormat
// means no override was given. Batch selects the directory naming rule.
type WorkUnit struct {
	InputPath    string
	Output       OutputSpec
	InputFormat  format.Format
	OutputFormat format.Format
	Batch        bool
}

// Options is the validated command line, with format tokens already
// resolved.
type Options struct {
	Inputs       []string
	Outputs      []string
	InputFormat  format.Format
	OutputFormat format.Format
	Batch        bool
}

// Plan checks the destination rules, then expands the inputs and pairs them
// with outputs. Units come back in input order.
func Plan(opts Options) ([]WorkUnit, error) {
	if err := CheckOptions(opts); err != nil {
		return nil, err
	}

	inputs, err := Expand(opts.Inputs, opts.Batch)
	if err != nil {
		return nil, err
	}

	pairs := Pair(inputs, opts.Outputs)
	units := make([]WorkUnit, len(pairs))
	for i, p := range pairs {
		units[i] = WorkUnit{
			InputPath:    p.Input,
			Output:       outputSpec(p, opts),
			InputFormat:  opts.InputFormat,
			OutputFormat: opts.OutputFormat,
			Batch:        opts.Batch,
		}
	}
	return units, nil
}

func outputSpec(p Pairing, opts Options) OutputSpec {
	switch {
	case p.HasOutput && opts.Batch:
		return Directory(p.Output)
	case p.HasOutput:
		return ExplicitPath(p.Output)
	case opts.OutputFormat.Known():
		return ExplicitFormatOnly(opts.OutputFormat)
	}
	return OutputSpec{}
}
