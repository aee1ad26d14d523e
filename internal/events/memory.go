package events

// Memory is the conversational context threaded through the chat workflow.
// It is a value type: WithAnalysis returns a new Memory with fresh backing
// slices, so a retried step can never observe a partially mutated copy.
type Memory struct {
	EmotionalStates []string `json:"emotionalStates"`
	Themes          []string `json:"themes"`
	RiskLevel       int      `json:"riskLevel"`
}

// WithAnalysis appends the analyzed emotional state and themes and
// overwrites the risk level (last write wins).
func (m Memory) WithAnalysis(emotionalState string, themes []string, riskLevel int) Memory {
	states := make([]string, 0, len(m.EmotionalStates)+1)
	states = append(states, m.EmotionalStates...)
	if emotionalState != "" {
		states = append(states, emotionalState)
	}

	merged := make([]string, 0, len(m.Themes)+len(themes))
	merged = append(merged, m.Themes...)
	merged = append(merged, themes...)

	return Memory{
		EmotionalStates: states,
		Themes:          merged,
		RiskLevel:       riskLevel,
	}
}
