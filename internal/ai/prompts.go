package ai

import (
	"fmt"
	"strings"
)

const descriptionSystemPrompt = `You are an expert software engineering assistant specializing in task planning and project management.
Your role is to help engineers create comprehensive, actionable task descriptions.

Always respond with valid JSON that matches the required schema exactly.
Focus on practical, implementable details that help engineers understand exactly what needs to be done.`

const descriptionSchema = `
Please provide a JSON response with the following structure:
{
    "description": "Detailed description of what needs to be implemented, including the why and how",
    "acceptance_criteria": ["List of 3-5 specific, measurable criteria that define when this task is complete"],
    "technical_notes": ["List of 2-4 technical considerations, implementation details, or potential challenges"],
    "estimated_hours": 2.5,
    "tags": ["List of 2-5 relevant tags like 'frontend', 'backend', 'api', 'database', etc."]
}

Focus on:
- Clear, actionable descriptions
- Specific acceptance criteria that can be tested
- Practical technical guidance
- Realistic time estimates
- Relevant categorization tags

Make sure the response is valid JSON and matches the schema exactly.`

const titleSystemPrompt = "You are a software engineering assistant. Generate concise, actionable task titles for engineering work. Respond with a JSON object of the form {\"titles\": [\"...\"]}."

func descriptionPrompt(req DescriptionRequest) string {
	var b strings.Builder

	b.WriteString("Generate a comprehensive task description for a software engineering task.\n\n")
	fmt.Fprintf(&b, "Task Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Project Type: %s\n", req.ProjectType)
	fmt.Fprintf(&b, "Complexity: %s\n", req.Complexity)

	if req.Context != nil && *req.Context != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n", *req.Context)
	}

	b.WriteString(descriptionSchema)
	return b.String()
}

func titlePrompt(req TitleRequest) string {
	return fmt.Sprintf("Generate %d specific task titles for: %s (Project type: %s).", req.Count, req.Context, req.ProjectType)
}
