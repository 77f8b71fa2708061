package agents

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCrewIsValid(t *testing.T) {
	if err := DefaultCrew().Validate(); err != nil {
		t.Fatalf("DefaultCrew().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Crew)
		wantErr string
	}{
		{
			name:    "no tasks",
			mutate:  func(c *Crew) { c.Tasks = nil },
			wantErr: "no tasks",
		},
		{
			name:    "unknown agent",
			mutate:  func(c *Crew) { c.Tasks[0].Agent = "astrologer" },
			wantErr: "unknown agent",
		},
		{
			name:    "missing output file",
			mutate:  func(c *Crew) { c.Tasks[1].OutputFile = "" },
			wantErr: "no output file",
		},
		{
			name:    "forward context reference",
			mutate:  func(c *Crew) { c.Tasks[0].Context = []string{"communications_task"} },
			wantErr: "does not precede",
		},
		{
			name:    "duplicate task name",
			mutate:  func(c *Crew) { c.Tasks[1].Name = c.Tasks[0].Name },
			wantErr: "duplicate task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crew := DefaultCrew()
			tt.mutate(crew)
			err := crew.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCrew(t *testing.T) {
	yaml := `
agents:
  cash_analyst:
    role: Cash Flow Analyst
    goal: Analyze cash flow
    backstory: Veteran analyst
tasks:
  - name: analysis
    agent: cash_analyst
    description: Analyze the data.
    expected_output: A markdown analysis
    output_file: analysis.md
`
	path := filepath.Join(t.TempDir(), "crew.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	crew, err := LoadCrew(path)
	if err != nil {
		t.Fatalf("LoadCrew failed: %v", err)
	}
	if len(crew.Tasks) != 1 || crew.Tasks[0].OutputFile != "analysis.md" {
		t.Errorf("unexpected crew: %+v", crew)
	}
	if crew.Agents["cash_analyst"].Role != "Cash Flow Analyst" {
		t.Errorf("agent not loaded: %+v", crew.Agents)
	}
}

func TestLoadCrewRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.yaml")
	if err := os.WriteFile(path, []byte("tasks: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCrew(path); err == nil {
		t.Error("LoadCrew accepted a crew with no tasks")
	}
}

func TestBuildTaskPrompt(t *testing.T) {
	crew := DefaultCrew()
	report := "CASH POSITION SNAPSHOT\nCurrent Cash Balance: $1,100.00"
	prior := map[string]string{
		"cash_flow_analysis_task": "Revenue is concentrated in Acme.",
	}

	prompt := BuildTaskPrompt(crew, crew.Tasks[1], report, prior)

	for _, want := range []string{
		"Credit Risk Analyst",
		"HERE IS THE ACTUAL FINANCIAL DATA TO ANALYZE",
		"Current Cash Balance: $1,100.00",
		"Revenue is concentrated in Acme.",
		"Do NOT invent generic examples",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildTaskPromptSkipsMissingContext(t *testing.T) {
	crew := DefaultCrew()
	prompt := BuildTaskPrompt(crew, crew.Tasks[2], "report", nil)
	if strings.Contains(prompt, "Output of earlier step") {
		t.Error("prompt includes context section with no prior outputs")
	}
}
