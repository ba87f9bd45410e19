package matching

// weakSubScore is the level below which a dimension earns a recommendation.
const weakSubScore = 0.5

// Recommendations returns short hints on how the pair could match better.
// Contextual scores are explained by their weak dimensions, the rest by the
// heuristic factors that did not match.
func Recommendations(score MatchScore, factors HeuristicFactors) []string {
	var hints []string

	if s := score.SubScores; s != nil {
		if s.Sector < weakSubScore {
			hints = append(hints, "Highlight experience in the sector this role targets")
		}
		if s.Language < weakSubScore {
			hints = append(hints, "State working languages such as Arabic or English")
		}
		if s.Format < weakSubScore {
			hints = append(hints, "Clarify availability for virtual, hybrid or in-person delivery")
		}
		if s.Cultural < weakSubScore {
			hints = append(hints, "Describe regional or cross-cultural experience")
		}
		return hints
	}

	if !factors.Title {
		hints = append(hints, "Align the profile title with the job title")
	}
	if !factors.Bio && !factors.Industry {
		hints = append(hints, "Mention skills and industry focus named in the job description")
	}
	if !factors.Location {
		hints = append(hints, "Location differs from the job location")
	}
	return hints
}
