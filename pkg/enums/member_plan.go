package enums

import "fmt"

// MemberPlan is the loyalty plan tier attached to a member.
type MemberPlan string

const (
	MemberPlanNone      MemberPlan = "none"
	MemberPlanSubscribe MemberPlan = "subscribe"
)

var validMemberPlans = []MemberPlan{
	MemberPlanNone,
	MemberPlanSubscribe,
}

// String implements fmt.Stringer.
func (p MemberPlan) String() string {
	return string(p)
}

// IsValid reports whether the value is a known MemberPlan.
func (p MemberPlan) IsValid() bool {
	for _, candidate := range validMemberPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseMemberPlan converts raw input into a MemberPlan.
func ParseMemberPlan(value string) (MemberPlan, error) {
	for _, candidate := range validMemberPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member plan %q", value)
}
