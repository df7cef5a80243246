package model

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// CueErrDetails flattens a CUE validation error into one human readable
// line per problem, suitable for logging before the load fails.
func CueErrDetails(err error) []string {
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, e := range cueerrors.Errors(err) {
		msg, args := e.Msg()
		line := fmt.Sprintf(msg, args...)
		if path := strings.Join(normalizePath(e.Path()), "."); path != "" {
			line = path + ": " + line
		}
		for _, pos := range cueerrors.Positions(e) {
			if pos.Filename() != "" {
				line = fmt.Sprintf("%s (%s:%d:%d)", line, pos.Filename(), pos.Line(), pos.Column())
				break
			}
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

// normalizePath strips the leading #Config definition from an error path.
func normalizePath(p []string) []string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		return p[1:]
	}
	return p
}
