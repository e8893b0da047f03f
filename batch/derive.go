package batch

import (
	"path/filepath"
	"strings"

	"imco/format"
	"imco/imerr"
)

// Destination is the resolved output of one work unit.
type Destination struct {
	Path   string
	Format format.Format
}

// CheckOptions applies the destination rules to the whole command line, so
// a batch that matches no file is still rejected. It does no I/O.
func CheckOptions(opts Options) error {
	if opts.OutputFormat.Known() {
		return nil
	}
	if len(opts.Outputs) == 0 {
		return imerr.NoDestFormat()
	}
	if opts.Batch {
		return imerr.InvalidBatching()
	}
	return nil
}

// CheckDestination rejects units whose destination cannot be determined.
// It does no I/O and runs before the input is read.
func CheckDestination(spec OutputSpec, target format.Format, batch bool) error {
	target = effectiveTarget(spec, target)
	hasPath := spec.Kind == OutputPath || spec.Kind == OutputDirectory
	if !hasPath && !target.Known() {
		return imerr.NoDestFormat()
	}
	if batch && !target.Known() {
		return imerr.InvalidBatching()
	}
	return nil
}

// Derive works out the output path and format of input.
//
// In batch mode the output is input's stem with the target extension,
// placed inside the output directory. Outside batch mode an explicit path
// is used as given, its format taken from the target or else from its
// extension; without a path the derived name lands in the working directory.
func Derive(input string, spec OutputSpec, target format.Format, batch bool) (Destination, error) {
	if err := CheckDestination(spec, target, batch); err != nil {
		return Destination{}, err
	}
	target = effectiveTarget(spec, target)

	if batch {
		var dir string
		if spec.Kind == OutputDirectory {
			dir = spec.Path
		}
		return Destination{Path: filepath.Join(dir, DerivedName(input, target)), Format: target}, nil
	}

	if spec.Kind == OutputPath {
		if target.Known() {
			return Destination{Path: spec.Path, Format: target}, nil
		}
		f, err := format.ResolveFromPath(spec.Path)
		if err != nil {
			return Destination{}, err
		}
		return Destination{Path: spec.Path, Format: f}, nil
	}

	return Destination{Path: DerivedName(input, target), Format: target}, nil
}

// DerivedName is the file name of input with its extension replaced by the
// canonical extension of f. Paths without a usable stem get the extension
// appended to the whole path instead.
func DerivedName(input string, f format.Format) string {
	ext := "." + f.Extension()
	base := filepath.Base(input)
	switch base {
	case ".", "..", string(filepath.Separator):
		return input + ext
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return input + ext
	}
	return stem + ext
}

func effectiveTarget(spec OutputSpec, target format.Format) format.Format {
	if !target.Known() && spec.Kind == OutputFormatOnly {
		return spec.Format
	}
	return target
}
