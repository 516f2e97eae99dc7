package category

import (
	"errors"
	"testing"
)

func TestParseKnownTypes(t *testing.T) {
	for _, raw := range []string{"ISSUE", "FACILITY", "EVENT"} {
		if _, err := Parse(raw); err != nil {
			t.Errorf("Parse(%q) failed: %v", raw, err)
		}
	}
}

func TestParseUnknownType(t *testing.T) {
	if _, err := Parse("issue"); !errors.Is(err, ErrUnknownMission) {
		t.Errorf("lowercase should not parse, got %v", err)
	}
	if _, err := Parse(""); !errors.Is(err, ErrUnknownMission) {
		t.Errorf("empty should not parse, got %v", err)
	}
}

func TestVotable(t *testing.T) {
	if !Issue.Votable() {
		t.Error("ISSUE must be votable")
	}
	if Facility.Votable() || Event.Votable() {
		t.Error("FACILITY and EVENT must not be votable")
	}
	if MissionType("BOGUS").Votable() {
		t.Error("unknown type must not be votable")
	}
}

func TestDefaultStatus(t *testing.T) {
	cases := map[MissionType]string{
		Issue:    "open",
		Facility: "normal",
		Event:    "ongoing",
	}
	for mission, want := range cases {
		if got := mission.DefaultStatus(); got != want {
			t.Errorf("%s default status: want %q, got %q", mission, want, got)
		}
	}
}
