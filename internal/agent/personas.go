package agent

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona roles.
const (
	RoleCoordinator     = "coordinator"
	RoleMedicalExpert   = "medical_expert"
	RoleCulturalAdvisor = "cultural_advisor"
	RoleReviewAnalyst   = "review_analyst"
)

//go:embed personas.yaml
var personasYAML []byte

// Persona is one prompt-configured assistant on the team.
type Persona struct {
	Key          string              `yaml:"key"`
	Name         string              `yaml:"name"`
	Title        string              `yaml:"title"`
	Role         string              `yaml:"role"`
	Instructions map[string][]string `yaml:"instructions"`
}

// InstructionsFor returns the persona's instructions in lang, or English.
func (p *Persona) InstructionsFor(lang string) []string {
	if ins, ok := p.Instructions[lang]; ok && len(ins) > 0 {
		return ins
	}
	return p.Instructions["en"]
}

// Team is the set of personas plus the shared team instructions.
type Team struct {
	Instructions []string   `yaml:"team"`
	Personas     []*Persona `yaml:"personas"`

	byKey map[string]*Persona
}

// LoadTeam parses the embedded persona definitions.
func LoadTeam() (*Team, error) {
	return ParseTeam(personasYAML)
}

// ParseTeam parses persona definitions from YAML.
func ParseTeam(data []byte) (*Team, error) {
	var t Team
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}

	t.byKey = make(map[string]*Persona, len(t.Personas))
	for _, p := range t.Personas {
		if p.Key == "" || p.Name == "" {
			return nil, fmt.Errorf("parse personas: persona needs key and name")
		}
		if len(p.Instructions["en"]) == 0 {
			return nil, fmt.Errorf("parse personas: %s has no english instructions", p.Key)
		}
		t.byKey[p.Key] = p
	}
	if _, ok := t.byKey[RoleCoordinator]; !ok {
		return nil, fmt.Errorf("parse personas: %s is required", RoleCoordinator)
	}
	return &t, nil
}

// Get returns the persona for key.
func (t *Team) Get(key string) (*Persona, bool) {
	p, ok := t.byKey[key]
	return p, ok
}

// Names lists the persona display names in definition order.
func (t *Team) Names() []string {
	names := make([]string, len(t.Personas))
	for i, p := range t.Personas {
		names[i] = p.Name
	}
	return names
}

// SystemPrompt renders the team header followed by each selected persona,
// primary first.
func (t *Team) SystemPrompt(roles []string, lang string) string {
	var b strings.Builder
	for _, line := range t.Instructions {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	for i, key := range roles {
		p, ok := t.byKey[key]
		if !ok {
			continue
		}
		b.WriteByte('\n')
		if i == 0 {
			fmt.Fprintf(&b, "Lead: %s, %s (%s)\n", p.Name, p.Title, p.Role)
		} else {
			fmt.Fprintf(&b, "Also contributing: %s, %s (%s)\n", p.Name, p.Title, p.Role)
		}
		for _, line := range p.InstructionsFor(lang) {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
