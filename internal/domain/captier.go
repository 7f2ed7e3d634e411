package domain

// CapTier is the named score band shown next to a scan score.
type CapTier struct {
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Label string `json:"label"`
	Tag   string `json:"tag"`
	Emoji string `json:"emoji"`
}

// CapTiers are ordered by ascending score and cover 0-100 without gaps.
var CapTiers = []CapTier{
	{Min: 0, Max: 19, Label: "Certified Angel", Tag: "No Cap", Emoji: "😇"},
	{Min: 20, Max: 34, Label: "Soft Sus", Tag: "Watching Closely", Emoji: "👀"},
	{Min: 35, Max: 49, Label: "Low-Key Cap Energy", Tag: "Something's Off", Emoji: "🤨"},
	{Min: 50, Max: 64, Label: "Story Not Adding Up", Tag: "Inconsistency Detected", Emoji: "📉"},
	{Min: 65, Max: 79, Label: "Major Cap Energy", Tag: "High Suspicion", Emoji: "🚩"},
	{Min: 80, Max: 100, Label: "Villain Arc Activated", Tag: "Critical Alert", Emoji: "🧨"},
}

func capTierIndex(score int) int {
	for i, t := range CapTiers {
		if score >= t.Min && score <= t.Max {
			return i
		}
	}
	return -1
}

// CapTierFor returns the band containing score. Out-of-range scores fall
// back to the first band.
func CapTierFor(score int) CapTier {
	if i := capTierIndex(score); i >= 0 {
		return CapTiers[i]
	}
	return CapTiers[0]
}

// NextCapTier returns the band above score, or false at the top band.
func NextCapTier(score int) (CapTier, bool) {
	i := capTierIndex(score)
	if i < 0 || i >= len(CapTiers)-1 {
		return CapTier{}, false
	}
	return CapTiers[i+1], true
}

// PointsToNextTier returns how far score is from the next band, or false at the top.
func PointsToNextTier(score int) (int, bool) {
	next, ok := NextCapTier(score)
	if !ok {
		return 0, false
	}
	return next.Min - score, true
}
