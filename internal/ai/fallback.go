package ai

// FallbackDescription is the deterministic description served when the
// completion backend is missing or fails.
func FallbackDescription(title string, context *string) DescriptionResponse {
	description := "Complete the task: " + title
	if context != nil && *context != "" {
		description += "\n\nAdditional context: " + *context
	}

	hours := 2.0

	return DescriptionResponse{
		Title:       title,
		Description: description,
		AcceptanceCriteria: []string{
			"Task requirements are clearly defined",
			"Implementation is complete and tested",
			"Code review is completed",
			"Documentation is updated",
		},
		TechnicalNotes: []string{
			"Review existing codebase for similar implementations",
			"Follow project coding standards and best practices",
			"Consider performance and scalability implications",
		},
		EstimatedHours: &hours,
		Tags:           []string{"task"},
		AIGenerated:    false,
	}
}

var titleVerbs = []string{"Implement", "Design", "Test", "Document", "Optimize"}

// FallbackTitles returns up to count verb-prefixed titles for context.
func FallbackTitles(context string, count int) []string {
	if count > len(titleVerbs) {
		count = len(titleVerbs)
	}
	if count < 0 {
		count = 0
	}

	out := make([]string, 0, count)
	for _, verb := range titleVerbs[:count] {
		out = append(out, verb+" "+context)
	}
	return out
}
