package agents

import (
	"strings"
)

// BuildTaskPrompt assembles the full prompt for one task: persona, task
// description, the verbatim cash-flow report, and the outputs of earlier
// tasks named as context. The report is embedded unmodified so the model
// works from exact figures rather than a paraphrase.
func BuildTaskPrompt(crew *Crew, task Task, reportText string, priorOutputs map[string]string) string {
	agent := crew.Agents[task.Agent]

	var b strings.Builder
	b.WriteString("You are " + agent.Role + ".\n")
	if agent.Goal != "" {
		b.WriteString("Your goal: " + agent.Goal + "\n")
	}
	if agent.Backstory != "" {
		b.WriteString("Background: " + agent.Backstory + "\n")
	}

	b.WriteString("\nTask:\n" + task.Description + "\n")

	b.WriteString("\nHERE IS THE ACTUAL FINANCIAL DATA TO ANALYZE:\n\n")
	b.WriteString(reportText)
	b.WriteString("\n")

	for _, ref := range task.Context {
		if prior, ok := priorOutputs[ref]; ok && prior != "" {
			b.WriteString("\nOutput of earlier step " + ref + ":\n\n")
			b.WriteString(prior)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nIMPORTANT:\n")
	b.WriteString("- Analyze the ACTUAL data above. Use real counterparty names, amounts and dates from it.\n")
	b.WriteString("- Do NOT invent generic examples or placeholder names.\n")
	b.WriteString("- Respond in Markdown.\n")

	if task.ExpectedOutput != "" {
		b.WriteString("\nExpected output: " + task.ExpectedOutput + "\n")
	}

	return b.String()
}
