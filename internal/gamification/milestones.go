package gamification

// Milestone thresholds that produce a notification when first reached.
var (
	XPMilestones       = []int64{100, 500, 1000, 2500, 5000, 10000, 25000, 50000}
	AnsweredMilestones = []int64{10, 50, 100, 250, 500, 1000, 2500, 5000}
)

// CrossedMilestones returns the thresholds t with before < t <= after, in
// ascending order. The caller decides which ones have been acknowledged.
func CrossedMilestones(thresholds []int64, before, after int64) []int64 {
	var crossed []int64
	for _, t := range thresholds {
		if before < t && t <= after {
			crossed = append(crossed, t)
		}
	}
	return crossed
}
