// Package strategy implements the interchangeable model-selection
// algorithms. Each strategy is a pure function of its candidates, the
// per-call selection context, and its own constructed configuration.
package strategy

import (
	"errors"
	"strings"

	"github.com/tributary-ai/model-selector/internal/types"
)

// ErrNoCandidates is returned when a strategy is invoked with an empty
// candidate list.
var ErrNoCandidates = errors.New("no candidate backends")

// Strategy reduces a list of candidate backends to one winner.
//
// Implementations must be safe for concurrent use; they hold no mutable
// state beyond their constructed configuration.
type Strategy interface {
	// SelectModel picks one backend from candidates. The context supplies
	// optional per-call cost/latency bounds.
	SelectModel(candidates []types.BackendInfo, sctx *types.SelectionContext) (types.BackendInfo, error)

	// Name returns the strategy tag recorded in selection decisions.
	Name() string
}

// matchesModelName reports whether a candidate name matches a ranking
// entry. Matching is case-insensitive and succeeds on exact match or on a
// hyphen boundary ("<entry>-..." or "...-<entry>"). The boundary match is
// deliberately loose: an entry "7b" matches any "*-7b" name.
func matchesModelName(candidate, entry string) bool {
	c := strings.ToLower(candidate)
	e := strings.ToLower(entry)
	return c == e || strings.HasPrefix(c, e+"-") || strings.HasSuffix(c, "-"+e)
}
