package pricing

import (
	"fmt"
	"math"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/devstudio/backoffice/pkg/errors"
)

// Rule is a conditional price adjustment. When evaluates against the quote
// (type, complexity, timeline, pages, features, integrations, subtotal);
// a matching rule multiplies the running amount and/or adds a fixed value.
type Rule struct {
	Name       string  `yaml:"name" json:"name"`
	When       string  `yaml:"when" json:"when"`
	Multiplier float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
	AddCents   int64   `yaml:"add_cents,omitempty" json:"add_cents,omitempty"`

	program *vm.Program
}

// RuleEnv is the data a rule condition can see.
type RuleEnv struct {
	Type         string
	Complexity   string
	Timeline     string
	Pages        int
	Features     []string
	Integrations []string
	Subtotal     int64
}

func (env RuleEnv) toMap() map[string]interface{} {
	features := env.Features
	if features == nil {
		features = []string{}
	}
	integrations := env.Integrations
	if integrations == nil {
		integrations = []string{}
	}
	return map[string]interface{}{
		"type":         env.Type,
		"complexity":   env.Complexity,
		"timeline":     env.Timeline,
		"pages":        env.Pages,
		"features":     features,
		"integrations": integrations,
		"subtotal":     int(env.Subtotal),
	}
}

// RuleSet is an ordered, compiled list of rules.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet compiles the rules. Each condition must evaluate to a bool.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	sample := RuleEnv{}.toMap()
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.NewValidationError("rules", "rule name is required")
		}
		if r.Multiplier < 0 {
			return nil, errors.NewValidationError("rules", fmt.Sprintf("rule %s: multiplier cannot be negative", r.Name))
		}
		program, err := expr.Compile(r.When, expr.Env(sample), expr.AsBool())
		if err != nil {
			return nil, errors.NewValidationError("rules", fmt.Sprintf("rule %s: %v", r.Name, err))
		}
		r.program = program
		compiled = append(compiled, r)
	}
	return &RuleSet{rules: compiled}, nil
}

// LoadRuleSet reads rules from a YAML file with a top-level "rules" list.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing rules: %w", err)
	}
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pricing rules: %w", err)
	}
	return NewRuleSet(doc.Rules)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Apply evaluates the rules in order. Each matching rule sees the amount
// produced by the previous ones.
func (rs *RuleSet) Apply(env RuleEnv) (int64, []Line, error) {
	running := env.Subtotal
	var lines []Line
	for _, r := range rs.rules {
		env.Subtotal = running
		out, err := expr.Run(r.program, env.toMap())
		if err != nil {
			return 0, nil, fmt.Errorf("pricing rule %s: %w", r.Name, err)
		}
		matched, _ := out.(bool)
		if !matched {
			continue
		}
		next := running
		if r.Multiplier > 0 {
			next = int64(math.Round(float64(next) * r.Multiplier))
		}
		next += r.AddCents
		if next < 0 {
			next = 0
		}
		lines = append(lines, Line{Kind: "rule", Key: r.Name, Label: r.Name, Amount: next - running})
		running = next
	}
	return running, lines, nil
}
