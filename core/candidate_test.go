package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCandidate(t *testing.T) {
	f := &Forum{Candidates: []Candidate{{Name: "Alice Wijaya"}, {Name: "Budi Santoso"}, {Name: "Citra"}}}

	tests := []struct {
		input string
		want  int
		err   error
	}{
		{"1", 0, nil},
		{"#3", 2, nil},
		{" 2 ", 1, nil},
		{"budi santoso", 1, nil},
		{"CITRA", 2, nil},
		{"", -1, ErrNoCandidateSelected},
		{"  ", -1, ErrNoCandidateSelected},
		{"0", -1, ErrUnknownCandidate},
		{"4", -1, ErrUnknownCandidate},
		{"Dewi", -1, ErrUnknownCandidate},
	}

	for _, tt := range tests {
		got, err := ResolveCandidate(f, tt.input)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.input)
		} else {
			assert.Nil(t, err, tt.input)
		}
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestResolveCandidateSuggestion(t *testing.T) {
	f := &Forum{Candidates: []Candidate{{Name: "Alice Wijaya"}, {Name: "Budi Santoso"}}}

	_, err := ResolveCandidate(f, "Budi Santosa")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	assert.Contains(t, err.Error(), `did you mean "Budi Santoso"`)

	_, err = ResolveCandidate(f, "Zyx")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	assert.NotContains(t, err.Error(), "did you mean")
}
