package models

import "testing"

func TestInterviewRoleOf(t *testing.T) {
	iv := Interview{RoomID: "r1", InterviewerID: "alice", CandidateID: "bob"}

	tests := []struct {
		identity string
		role     Role
		ok       bool
	}{
		{identity: "alice", role: RoleInterviewer, ok: true},
		{identity: "bob", role: RoleCandidate, ok: true},
		{identity: "mallory", ok: false},
	}

	for _, tt := range tests {
		role, ok := iv.RoleOf(tt.identity)
		if ok != tt.ok || role != tt.role {
			t.Fatalf("RoleOf(%q)=(%q, %v), want (%q, %v)", tt.identity, role, ok, tt.role, tt.ok)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(""); err != nil || r != RoleCandidate {
		t.Fatalf("ParseRole(\"\")=(%q, %v), want candidate", r, err)
	}
	if r, err := ParseRole("interviewer"); err != nil || !r.CanInitiate() {
		t.Fatalf("ParseRole(interviewer)=(%q, %v)", r, err)
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
