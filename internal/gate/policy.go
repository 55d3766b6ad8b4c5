package gate

import (
	"fmt"

	"github.com/andresmejia3/faceguard/internal/types"
)

// Policy chooses which of several recognized faces the decision is made on
type Policy string

const (
	PolicyFirst      Policy = "first"      // detector emission order
	PolicyConfidence Policy = "confidence" // highest top confidence
	PolicyLargest    Policy = "largest"    // largest box area
)

// ParsePolicy accepts the policy names; empty means first
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyFirst, nil
	case PolicyFirst, PolicyConfidence, PolicyLargest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q (want first, confidence or largest)", s)
	}
}

// Select returns the match the policy picks. Ties go to the earlier match.
func Select(matches []types.Match, p Policy) (types.Match, bool) {
	if len(matches) == 0 {
		return types.Match{}, false
	}
	best := 0
	for i := 1; i < len(matches); i++ {
		switch p {
		case PolicyConfidence:
			if matches[i].Prediction.Confidence > matches[best].Prediction.Confidence {
				best = i
			}
		case PolicyLargest:
			if matches[i].Box.Area() > matches[best].Box.Area() {
				best = i
			}
		}
	}
	return matches[best], true
}
