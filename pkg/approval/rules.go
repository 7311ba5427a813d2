package approval

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"reflect"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v2"
)

// Rule is one additive adjustment of the rule-based scorer. When is a CEL
// expression over the record's fields and the service's derived signals.
type Rule struct {
	Name   string  `yaml:"name"`
	When   string  `yaml:"when"`
	Adjust float64 `yaml:"adjust"`
}

// RuleSet is the rule table of a service, kept as configuration data.
type RuleSet struct {
	Base      float64 `yaml:"base"`
	Floor     float64 `yaml:"floor"`
	Ceiling   float64 `yaml:"ceiling"`
	Threshold float64 `yaml:"threshold"`
	Rules     []Rule  `yaml:"rules"`
}

// ParseRuleSet decodes and validates a YAML rule table.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.UnmarshalStrict(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRuleSet reads a YAML rule table from disk.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rule set %s: %w", path, err)
	}
	return ParseRuleSet(data)
}

// Validate checks the bounds, that base and threshold lie within them and
// that every rule is named and gated.
func (rs RuleSet) Validate() error {
	if rs.Floor < 0 || rs.Ceiling > 1 || rs.Floor > rs.Ceiling {
		return fmt.Errorf("rule set: invalid bounds [%v, %v]", rs.Floor, rs.Ceiling)
	}
	if rs.Base < rs.Floor || rs.Base > rs.Ceiling {
		return fmt.Errorf("rule set: base %v outside [%v, %v]", rs.Base, rs.Floor, rs.Ceiling)
	}
	if rs.Threshold < rs.Floor || rs.Threshold > rs.Ceiling {
		return fmt.Errorf("rule set: threshold %v outside [%v, %v]", rs.Threshold, rs.Floor, rs.Ceiling)
	}
	seen := make(map[string]bool, len(rs.Rules))
	for i, r := range rs.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule set: rule %d has no name", i)
		}
		if r.When == "" {
			return fmt.Errorf("rule set: rule %q has no condition", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("rule set: duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Signal is a numeric value derived from a record and exposed to rule
// conditions under Name.
type Signal struct {
	Name    string
	Compute func(Record) float64
}

type compiledRule struct {
	Rule
	program cel.Program
}

// RuleEngine scores a record with an ordered list of additive rules. It is
// pure: the same record always yields the same probability.
type RuleEngine struct {
	set     RuleSet
	rules   []compiledRule
	signals []Signal
	logger  *slog.Logger
}

// NewRuleEngine compiles every rule condition against the declared fields
// and signals. A condition that does not type-check as bool is an error.
func NewRuleEngine(set RuleSet, fields FieldSet, signals []Signal, logger *slog.Logger) (*RuleEngine, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, f := range fields {
		if f.Kind == Category {
			opts = append(opts, cel.Variable(f.Name, cel.StringType))
		} else {
			opts = append(opts, cel.Variable(f.Name, cel.DoubleType))
		}
	}
	for _, s := range signals {
		opts = append(opts, cel.Variable(s.Name, cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("rule engine: create CEL environment: %w", err)
	}

	compiled := make([]compiledRule, 0, len(set.Rules))
	for _, r := range set.Rules {
		ast, issues := env.Compile(r.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule engine: compile %q: %w", r.Name, issues.Err())
		}
		if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
			return nil, fmt.Errorf("rule engine: rule %q yields %v, want bool", r.Name, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule engine: program %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{Rule: r, program: prg})
	}

	return &RuleEngine{
		set:     set,
		rules:   compiled,
		signals: signals,
		logger:  logger,
	}, nil
}

// RuleSet returns the table the engine was built from.
func (e *RuleEngine) RuleSet() RuleSet {
	return e.set
}

// Score returns the clamped approval probability for a record.
func (e *RuleEngine) Score(r Record) float64 {
	p, _ := e.evaluate(r)
	return p
}

// Trace returns the names of the rules that fired, in declared order.
func (e *RuleEngine) Trace(r Record) []string {
	_, fired := e.evaluate(r)
	return fired
}

// Approved applies the decision threshold.
func (e *RuleEngine) Approved(p float64) bool {
	return p > e.set.Threshold
}

// Activation exposes the record and derived signals as CEL variables.
func (e *RuleEngine) Activation(r Record) map[string]any {
	vars := r.Values()
	for _, s := range e.signals {
		vars[s.Name] = s.Compute(r)
	}
	return vars
}

func (e *RuleEngine) evaluate(r Record) (float64, []string) {
	vars := e.Activation(r)
	p := e.set.Base
	var fired []string
	for _, rule := range e.rules {
		out, _, err := rule.program.Eval(vars)
		if err != nil {
			e.logger.Warn("rule evaluation failed, skipping", "rule", rule.Name, "error", err)
			continue
		}
		if hit, ok := out.Value().(bool); ok && hit {
			p += rule.Adjust
			fired = append(fired, rule.Name)
		}
	}
	return math.Min(math.Max(p, e.set.Floor), e.set.Ceiling), fired
}
