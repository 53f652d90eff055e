package core

import (
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/pkg/errors"
)

// ResolveCandidate maps user input to a candidate index. Input is either a 1-based position
// ("2" or "#2") or a candidate name compared case-insensitively.
func ResolveCandidate(f *Forum, input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return -1, ErrNoCandidateSelected
	}

	if n, err := strconv.Atoi(strings.TrimPrefix(input, "#")); err == nil {
		if n < 1 || n > len(f.Candidates) {
			return -1, errors.Wrapf(ErrUnknownCandidate, "position %d out of 1..%d", n, len(f.Candidates))
		}
		return n - 1, nil
	}

	for i, c := range f.Candidates {
		if strings.EqualFold(c.Name, input) {
			return i, nil
		}
	}

	if suggestion, ok := closestCandidate(f, input); ok {
		return -1, errors.Wrapf(ErrUnknownCandidate, "%q, did you mean %q?", input, suggestion)
	}
	return -1, errors.Wrapf(ErrUnknownCandidate, "%q", input)
}

func closestCandidate(f *Forum, input string) (string, bool) {
	best, bestDist := "", -1
	needle := strings.ToLower(input)
	for _, c := range f.Candidates {
		dist := levenshtein.ComputeDistance(needle, strings.ToLower(c.Name))
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c.Name, dist
		}
	}

	// beyond a third of the name the match is noise
	limit := len(best) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return "", false
	}
	return best, true
}
