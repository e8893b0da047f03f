package batch

import (
	"errors"
	"sort"

	"imco/imerr"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand turns the input arguments into concrete paths. Outside batch mode
// the arguments are literal paths and come back unchanged. In batch mode
// every argument is a glob; matches keep the argument order and are sorted
// within one argument. The first bad pattern or unreadable directory aborts
// the whole expansion.
func Expand(patterns []string, enabled bool) ([]string, error) {
	if !enabled {
		return patterns, nil
	}

	var paths []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, imerr.BatchPattern(imerr.ReasonBadPattern, pattern)
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFailOnIOErrors())
		if err != nil {
			if errors.Is(err, doublestar.ErrBadPattern) {
				return nil, imerr.BatchPattern(imerr.ReasonBadPattern, pattern)
			}
			return nil, imerr.BatchReadEntry(imerr.ReasonOf(err))
		}

		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}
