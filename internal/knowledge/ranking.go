package knowledge

import (
	"time"

	"github.com/yologdev/yocore/internal/model"
)

// RankingInput is the subset of a Memory's fields the ranking score and
// state transitions depend on.
type RankingInput struct {
	State model.MemoryState
	AccessCount int
	Confidence float64
	IsValidated bool
	ExtractedAt time.Time
	// LastAccessAt is nil if the memory has never been accessed since
	// extraction; days-since-access is then measured from ExtractedAt,
	// so an unused memory ages the same way a never-revisited one would.
	LastAccessAt *time.Time
}

// Score computes the ranking score in [0,1].
func Score(in RankingInput, now time.Time) float64 {
	accessTerm := 0.35 * minF(float64(in.AccessCount)/10, 1)
	confidenceTerm := 0.25 * in.Confidence
	recencyTerm := 0.25 * maxF(1-daysSince(in.lastAccessOrExtracted(), now)/90, 0)
	validatedTerm := 0.0
	if in.IsValidated {
		validatedTerm = 0.15
	}
	return accessTerm + confidenceTerm + recencyTerm + validatedTerm
}

func (in RankingInput) lastAccessOrExtracted() time.Time {
	if in.LastAccessAt != nil {
		return *in.LastAccessAt
	}
	return in.ExtractedAt
}

func daysSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// NextState evaluates the transition table in and returns
// the memory's next state, or its current state if no transition fires.
// Validated memories are immune to demotion or removal; they are only
// ever evaluated for new->high / low->high promotion.
func NextState(in RankingInput, now time.Time) model.MemoryState {
	score := Score(in, now)
	daysExtracted := daysSince(in.ExtractedAt, now)
	daysAccess := daysSince(in.lastAccessOrExtracted(), now)

	switch in.State {
	case model.StateNew:
		if score >= 0.7 && in.AccessCount >= 3 {
			return model.StateHigh
		}
		if in.IsValidated {
			return model.StateNew
		}
		if score < 0.3 && daysExtracted >= 30 && in.AccessCount == 0 {
			return model.StateRemoved
		}
		if score < 0.4 && daysExtracted >= 14 {
			return model.StateLow
		}
		return model.StateNew

	case model.StateLow:
		if score >= 0.6 && in.AccessCount >= 5 {
			return model.StateHigh
		}
		return model.StateLow

	case model.StateHigh:
		if in.IsValidated {
			return model.StateHigh
		}
		if score < 0.4 && daysAccess >= 90 {
			return model.StateLow
		}
		return model.StateHigh

	default: // removed, or any unknown state
		return in.State
	}
}
