package points

// Step-count tier thresholds. Tiers are mutually exclusive - the highest
// applicable tier wins, they never sum.
const (
	stepsTierHigh = 12500
	stepsTierMid  = 10000
	stepsTierLow  = 7000

	stepsPointsHigh = 8
	stepsPointsMid  = 5
	stepsPointsLow  = 3
)

// Session scoring constants. Only whole 30-minute blocks count; a
// 29-minute session contributes nothing.
const (
	blockSeconds = 1800

	strengthHRThreshold = 105 // strength: blocks * 8 above this
	cardioHRHigh        = 110 // cardio: blocks * 8 above this
	cardioHRLow         = 90  // cardio: blocks * 5 from here through cardioHRHigh

	pointsPerBlockHigh = 8
	pointsPerBlockMid  = 5
)

// Score computes the total points for one day from its step count and
// exercise sessions. Pure and total: invalid or missing inputs degrade
// to zero contribution, never an error. There is no daily cap.
func Score(steps int, sessions []ExerciseSession) int {
	total := pointsFromSteps(steps)
	for _, session := range sessions {
		total += pointsFromSession(session)
	}
	return total
}

// pointsFromSteps returns the step-tier points for the day
func pointsFromSteps(steps int) int {
	switch {
	case steps >= stepsTierHigh:
		return stepsPointsHigh
	case steps >= stepsTierMid:
		return stepsPointsMid
	case steps >= stepsTierLow:
		return stepsPointsLow
	default:
		return 0
	}
}

// pointsFromSession returns the contribution of a single session.
// A session without heart-rate data contributes nothing - duration alone
// is not evidence of effort.
func pointsFromSession(s ExerciseSession) int {
	if s.AverageHeartRate <= 0 || s.DurationSeconds <= 0 {
		return 0
	}

	blocks := s.DurationSeconds / blockSeconds
	if blocks == 0 {
		return 0
	}

	if s.IsStrength() {
		if s.AverageHeartRate > strengthHRThreshold {
			return blocks * pointsPerBlockHigh
		}
		return 0
	}

	switch {
	case s.AverageHeartRate > cardioHRHigh:
		return blocks * pointsPerBlockHigh
	case s.AverageHeartRate >= cardioHRLow:
		return blocks * pointsPerBlockMid
	default:
		return 0
	}
}
