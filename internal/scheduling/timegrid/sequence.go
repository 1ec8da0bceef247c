// Package timegrid holds the canonical ordered list of start times every
// slot must fall on.
package timegrid

import (
	"errors"
	"fmt"
	"strings"

	"nailbook/pkg/model"
)

var ErrEmptySequence = errors.New("time sequence cannot be empty")

// Sequence is immutable once built and safe for concurrent use.
type Sequence struct {
	times []string
	index map[string]int
}

// New validates times and returns a Sequence. Entries must be HH:MM and
// strictly increasing.
func New(times []string) (*Sequence, error) {
	if len(times) == 0 {
		return nil, ErrEmptySequence
	}

	s := &Sequence{
		times: make([]string, len(times)),
		index: make(map[string]int, len(times)),
	}
	for i, t := range times {
		if !model.ValidTimeOfDay(t) {
			return nil, fmt.Errorf("invalid time %q at position %d: expected HH:MM", t, i)
		}
		// zero-padded HH:MM sorts lexically
		if i > 0 && t <= times[i-1] {
			return nil, fmt.Errorf("time %q at position %d is not after %q", t, i, times[i-1])
		}
		s.times[i] = t
		s.index[t] = i
	}
	return s, nil
}

// Parse builds a Sequence from a comma separated list such as
// "08:00,10:30,13:00".
func Parse(raw string) (*Sequence, error) {
	var times []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			times = append(times, p)
		}
	}
	return New(times)
}

func MustParse(raw string) *Sequence {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the entry immediately after t. ok is false when t is the
// last entry or not part of the sequence.
func (s *Sequence) Next(t string) (next string, ok bool) {
	i, found := s.index[t]
	if !found || i+1 >= len(s.times) {
		return "", false
	}
	return s.times[i+1], true
}

func (s *Sequence) Contains(t string) bool {
	_, ok := s.index[t]
	return ok
}

// Index returns the position of t, or -1.
func (s *Sequence) Index(t string) int {
	if i, ok := s.index[t]; ok {
		return i
	}
	return -1
}

// Times returns a copy of the entries in order.
func (s *Sequence) Times() []string {
	out := make([]string, len(s.times))
	copy(out, s.times)
	return out
}

func (s *Sequence) Len() int {
	return len(s.times)
}

func (s *Sequence) String() string {
	return strings.Join(s.times, ",")
}
