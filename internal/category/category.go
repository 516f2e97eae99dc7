// Package category models the mission classification of a tag. Each mission
// type declares whether its statuses carry a vote counter and what the initial
// status of a freshly created tag reads, replacing the string matching the
// previous implementation scattered across call sites.
package category

import "errors"

type MissionType string

const (
	// Issue reports are the votable kind: enough upvotes archive the tag.
	Issue    MissionType = "ISSUE"
	Facility MissionType = "FACILITY"
	Event    MissionType = "EVENT"
)

var ErrUnknownMission = errors.New("unknown mission type")

type descriptor struct {
	votable       bool
	defaultStatus string
}

var missions = map[MissionType]descriptor{
	Issue:    {votable: true, defaultStatus: "open"},
	Facility: {votable: false, defaultStatus: "normal"},
	Event:    {votable: false, defaultStatus: "ongoing"},
}

// Parse validates a wire-level mission type.
func Parse(raw string) (MissionType, error) {
	if _, ok := missions[MissionType(raw)]; !ok {
		return "", ErrUnknownMission
	}
	return MissionType(raw), nil
}

// Votable reports whether statuses under this mission type carry an upvote
// counter. Unknown types are not votable.
func (m MissionType) Votable() bool {
	return missions[m].votable
}

// DefaultStatus is the status name a new tag starts with when the reporter
// does not supply one.
func (m MissionType) DefaultStatus() string {
	return missions[m].defaultStatus
}

// Category is a tag's full classification: the mission type plus the optional
// free-form subtype and target labels.
type Category struct {
	Type    MissionType `json:"missionType"`
	Subtype string      `json:"subType,omitempty"`
	Target  string      `json:"target,omitempty"`
}
