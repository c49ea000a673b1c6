package llm

import (
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompt is one task's system and user templates. The user field is a Go
// text/template over the promptData fields.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// PromptSet maps task names to prompts. Prompts are configuration: the
// embedded defaults can be overridden per task from a YAML file.
type PromptSet map[string]Prompt

// promptData carries the values a prompt template can reference.
type promptData struct {
	Title    string
	Text     string
	Metric   string
	Taxonomy string
}

// LoadPrompts returns the embedded prompt set, overlaid with any tasks
// defined in the file at path. An empty path means defaults only.
func LoadPrompts(path string) (PromptSet, error) {
	ps := PromptSet{}
	if err := yaml.Unmarshal(defaultPromptsYAML, &ps); err != nil {
		return nil, eris.Wrap(err, "llm: parse embedded prompts")
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "llm: read prompts %s", path)
		}
		overrides := PromptSet{}
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, eris.Wrapf(err, "llm: parse prompts %s", path)
		}
		for name, p := range overrides {
			ps[name] = p
		}
	}
	return ps, nil
}

// render produces the system and user strings for a task.
func (ps PromptSet) render(task string, data promptData) (system, user string, err error) {
	p, ok := ps[task]
	if !ok {
		return "", "", eris.Errorf("llm: unknown prompt task %q", task)
	}

	tmpl, err := template.New(task).Parse(p.User)
	if err != nil {
		return "", "", eris.Wrapf(err, "llm: parse template %s", task)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", "", eris.Wrapf(err, "llm: render template %s", task)
	}
	return p.System, b.String(), nil
}
