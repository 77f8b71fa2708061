// Package agents runs the sequential text-generation tasks that turn the
// deterministic cash-flow report into narrative markdown artifacts.
package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Agent describes one analysis persona.
type Agent struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// Task is one generation step. Context names earlier tasks whose outputs are
// included in this task's prompt, so tasks must be listed in execution order.
type Task struct {
	Name           string   `yaml:"name"`
	Agent          string   `yaml:"agent"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	OutputFile     string   `yaml:"output_file"`
	Context        []string `yaml:"context"`
}

// Crew is the full agent/task definition, normally loaded from YAML.
type Crew struct {
	Agents map[string]Agent `yaml:"agents"`
	Tasks  []Task           `yaml:"tasks"`
}

// LoadCrew reads and validates a crew definition from a YAML file.
func LoadCrew(path string) (*Crew, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCrew: read %q: %w", path, err)
	}

	var crew Crew
	if err := yaml.Unmarshal(data, &crew); err != nil {
		return nil, fmt.Errorf("LoadCrew: parse %q: %w", path, err)
	}

	if err := crew.Validate(); err != nil {
		return nil, fmt.Errorf("LoadCrew: %q: %w", path, err)
	}
	return &crew, nil
}

// Validate checks cross-references: every task names a known agent, an
// output file, and only earlier tasks as context.
func (c *Crew) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("crew defines no tasks")
	}

	seen := make(map[string]bool, len(c.Tasks))
	for i, task := range c.Tasks {
		if task.Name == "" {
			return fmt.Errorf("task %d has no name", i)
		}
		if seen[task.Name] {
			return fmt.Errorf("duplicate task %q", task.Name)
		}
		if _, ok := c.Agents[task.Agent]; !ok {
			return fmt.Errorf("task %q references unknown agent %q", task.Name, task.Agent)
		}
		if task.OutputFile == "" {
			return fmt.Errorf("task %q has no output file", task.Name)
		}
		for _, ref := range task.Context {
			if !seen[ref] {
				return fmt.Errorf("task %q references context %q which does not precede it", task.Name, ref)
			}
		}
		seen[task.Name] = true
	}
	return nil
}

// DefaultCrew returns the built-in three-step crew used when no YAML
// definition is configured: cash-flow narrative, risk assessment, executive
// summary.
func DefaultCrew() *Crew {
	return &Crew{
		Agents: map[string]Agent{
			"cash_analyst": {
				Role:      "Cash Flow Analyst",
				Goal:      "Analyze financial transactions and cash flow",
				Backstory: "Expert in cash flow analysis for small and medium businesses",
			},
			"risk_analyst": {
				Role:      "Credit Risk Analyst",
				Goal:      "Assess financial health and identify risks",
				Backstory: "Expert in financial risk assessment and receivables management",
			},
			"communications_manager": {
				Role:      "Communications & Action Manager",
				Goal:      "Draft communications and compile reports",
				Backstory: "Expert in financial communications for business owners",
			},
		},
		Tasks: []Task{
			{
				Name:           "cash_flow_analysis_task",
				Agent:          "cash_analyst",
				Description:    "Analyze the cash flow data: totals, trends, customer concentration and payment status mix.",
				ExpectedOutput: "Detailed cash flow analysis with specific customer names, amounts, and metrics from the data provided",
				OutputFile:     "cash_flow_analysis.md",
			},
			{
				Name:           "risk_assessment_task",
				Agent:          "risk_analyst",
				Description:    "Assess financial risks: overdue receivables, pending payables, runway pressure and counterparty exposure.",
				ExpectedOutput: "Risk assessment with specific customer names, exact amounts owed/pending, and prioritized actions",
				OutputFile:     "risk_assessment.md",
				Context:        []string{"cash_flow_analysis_task"},
			},
			{
				Name:           "communications_task",
				Agent:          "communications_manager",
				Description:    "Create an executive report for the business owner summarizing financial health and concrete next actions.",
				ExpectedOutput: "Executive report with real customer names, specific amounts, and actionable recommendations based on actual financial data",
				OutputFile:     "financial_health_report.md",
				Context:        []string{"cash_flow_analysis_task", "risk_assessment_task"},
			},
		},
	}
}
