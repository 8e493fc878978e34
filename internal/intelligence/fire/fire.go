// Package fire reads the fire-fighting section of a safety data sheet into
// suitable agents, unsuitable agents and further advice.
package fire

import (
	"sort"
	"strings"
)

// Slot identifies one of the three values of the section.
type Slot int

const (
	Suitable Slot = iota
	Unsuitable
	Misc
)

// Labels are the lower-case phrases introducing each slot.
type Labels struct {
	Suitable   string
	Unsuitable string
	Misc       string
}

// Layout describes how a document family writes the section.
type Layout struct {
	// Delimiter separates the segments of the block.
	Delimiter string
	// Labels introduce the slots.
	Labels Labels
	// LabelLine means a segment holds exactly a label and the value is the
	// following segment.  Otherwise a segment contains its label and the
	// value follows the first ':'.
	LabelLine bool
}

// Agents are the values read from the section.  Slots that were not found
// are empty.
type Agents struct {
	Suitable   string `json:"ext_agents"`
	Unsuitable string `json:"no_ext_agents"`
	Misc       string `json:"fire_misc"`
}

func (a *Agents) set(s Slot, v string) {
	switch s {
	case Suitable:
		a.Suitable = v
	case Unsuitable:
		a.Unsuitable = v
	case Misc:
		a.Misc = v
	}
}

type label struct {
	text string
	slot Slot
}

// ordered returns the non-empty labels, longest first, so that a label which
// contains another ("ungeeignete" contains "geeignete") is tested first.
func (l Labels) ordered() []label {
	out := make([]label, 0, 3)
	for _, c := range []label{{l.Suitable, Suitable}, {l.Unsuitable, Unsuitable}, {l.Misc, Misc}} {
		if c.text != "" {
			out = append(out, label{strings.ToLower(c.text), c.slot})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].text) > len(out[j].text) })
	return out
}

// Parse splits block into segments and assigns each slot at most once; the
// first segment matching a label wins.
func Parse(block string, layout Layout) Agents {
	var agents Agents
	delim := layout.Delimiter
	if delim == "" {
		delim = "\n"
	}
	segments := strings.Split(block, delim)
	labels := layout.Labels.ordered()
	seen := make(map[Slot]bool, len(labels))

	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		lower := strings.ToLower(seg)
		for _, l := range labels {
			if layout.LabelLine {
				if lower != l.text || seen[l.slot] {
					continue
				}
				if i+1 < len(segments) {
					agents.set(l.slot, collapse(segments[i+1]))
				}
				seen[l.slot] = true
				break
			}

			if !strings.Contains(lower, l.text) {
				continue
			}
			// a segment belongs to the longest label it contains
			if seen[l.slot] {
				break
			}
			_, value, ok := strings.Cut(seg, ":")
			if !ok {
				break
			}
			agents.set(l.slot, collapse(value))
			seen[l.slot] = true
			break
		}
	}
	return agents
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

//Personal.AI order the ending
