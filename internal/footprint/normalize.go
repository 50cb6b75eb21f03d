package footprint

import "github.com/rotisserie/eris"

// Policy selects which end of the weight scale PickOne favors.
type Policy string

const (
	PolicyWorst Policy = "worst"
	PolicyBest  Policy = "best"
)

// ErrNoCandidates is returned when a survey dimension has no usable
// candidates. This is a caller contract violation; the submission handler
// must reject the survey upstream rather than score it.
var ErrNoCandidates = eris.New("footprint: no candidates provided")

// PickOne deterministically selects one representative candidate per the
// policy: worst picks the maximum weight, best the minimum. Candidates absent
// from the weight table are skipped, not treated as zero weight. Ties keep
// the earlier candidate (stable left-to-right scan).
func PickOne[K comparable](candidates []K, weights map[K]float64, policy Policy) (K, error) {
	var zero K
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}

	var picked K
	var pickedWeight float64
	found := false

	for _, c := range candidates {
		w, ok := weights[c]
		if !ok {
			continue
		}
		if !found {
			picked, pickedWeight, found = c, w, true
			continue
		}
		if policy == PolicyBest {
			if w < pickedWeight {
				picked, pickedWeight = c, w
			}
		} else {
			if w > pickedWeight {
				picked, pickedWeight = c, w
			}
		}
	}

	if !found {
		// Every candidate was an unknown option string.
		return zero, eris.Wrap(ErrNoCandidates, "footprint: no candidate present in weight table")
	}
	return picked, nil
}
