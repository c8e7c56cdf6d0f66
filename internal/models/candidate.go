package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Candidate is a handle proposed for a follow action by discovery.
type Candidate struct {
	Handle       string    `json:"handle"`
	Source       string    `json:"source,omitempty"` // "@seed" or "#hashtag"
	DiscoveredAt time.Time `json:"discovered_at,omitzero"`
}

// UnmarshalJSON accepts both the object form and a bare handle string, so
// candidate files written as a plain list of handles still load.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var handle string
	if err := json.Unmarshal(data, &handle); err == nil {
		*c = Candidate{Handle: handle}
		return nil
	}

	type plain Candidate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	*c = Candidate(p)
	return nil
}

// CandidateSet is the ordered output of one discovery cycle.
type CandidateSet []Candidate

// Handles returns the handles in set order.
func (s CandidateSet) Handles() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Handle
	}
	return out
}

// SourceSeed formats the discovered-from label for a seed account.
func SourceSeed(handle string) string { return "@" + handle }

// SourceHashtag formats the discovered-from label for a hashtag.
func SourceHashtag(tag string) string { return "#" + tag }
