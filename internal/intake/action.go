package intake

import "net/http"

// Action is the closed set of operations the gateway performs.
type Action int

const (
	ActionUnknown Action = iota
	ActionGetReviews
	ActionAddReview
	ActionContact
	ActionTutorApply
)

var actionNames = map[Action]string{
	ActionGetReviews: "get-reviews",
	ActionAddReview:  "add-review",
	ActionContact:    "contact",
	ActionTutorApply: "tutor-apply",
}

// ParseAction maps the wire name of an action to its Action. Unrecognised
// names yield ActionUnknown.
func ParseAction(s string) Action {
	for a, name := range actionNames {
		if name == s {
			return a
		}
	}
	return ActionUnknown
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Method returns the only HTTP method a known action accepts.
func (a Action) Method() string {
	switch a {
	case ActionGetReviews:
		return http.MethodGet
	case ActionAddReview, ActionContact, ActionTutorApply:
		return http.MethodPost
	default:
		return ""
	}
}
