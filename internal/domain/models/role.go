package models

import "fmt"

type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleInterviewer, RoleCandidate:
		return Role(s), nil
	case "":
		return RoleCandidate, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanInitiate - звонок начинает только интервьюер
func (r Role) CanInitiate() bool {
	return r == RoleInterviewer
}
