package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatToken(t *testing.T) {
	assert.Equal(t, "2024-05-01-001", FormatToken("2024-05-01", 1))
	assert.Equal(t, "2024-05-01-042", FormatToken("2024-05-01", 42))
	// Three digits is a floor, not a ceiling.
	assert.Equal(t, "2024-05-01-1000", FormatToken("2024-05-01", 1000))
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want VisitStatus
		ok   bool
	}{
		{"waiting", VisitStatusWaiting, true},
		{"in_consultation", VisitStatusInConsultation, true},
		{"completed", VisitStatusCompleted, true},
		{"seen", VisitStatusInConsultation, true},
		{"done", VisitStatusCompleted, true},
		{"SEEN", "", false},
		{"triaged", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeStatus(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(VisitStatusWaiting, VisitStatusInConsultation))
	assert.True(t, CanTransition(VisitStatusWaiting, VisitStatusCompleted))
	assert.True(t, CanTransition(VisitStatusInConsultation, VisitStatusCompleted))

	// No backward moves and no self moves.
	assert.False(t, CanTransition(VisitStatusCompleted, VisitStatusWaiting))
	assert.False(t, CanTransition(VisitStatusCompleted, VisitStatusInConsultation))
	assert.False(t, CanTransition(VisitStatusInConsultation, VisitStatusWaiting))
	assert.False(t, CanTransition(VisitStatusWaiting, VisitStatusWaiting))

	// Unknown statuses never transition.
	assert.False(t, CanTransition("triaged", VisitStatusCompleted))
	assert.False(t, CanTransition(VisitStatusWaiting, "triaged"))
}
