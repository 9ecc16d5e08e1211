package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/eqhdl/eqhdl/internal/egraph"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/term"
)

// State is a session lifecycle state. States only move forward.
type State int

const (
	StateEmpty State = iota
	StateSchemaLoaded
	StateRulesLoaded
	StateFactsLoaded
	StateSaturated
	StateExtracted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateSchemaLoaded:
		return "SchemaLoaded"
	case StateRulesLoaded:
		return "RulesLoaded"
	case StateFactsLoaded:
		return "FactsLoaded"
	case StateSaturated:
		return "Saturated"
	case StateExtracted:
		return "Extracted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultMaxIterations is the default iteration quota per run.
const DefaultMaxIterations = 1000

// DefaultNodeLimit is the default cap on e-nodes.
const DefaultNodeLimit = 100_000

// DefaultRuleset names the ruleset that rewrites without :ruleset join.
const DefaultRuleset = ""

type signature map[string]term.Constructor

func (s signature) Constructor(sym string) (term.Constructor, bool) {
	c, ok := s[sym]
	return c, ok
}

type rule struct {
	name    string
	ruleset string
	lhs     term.Term
	rhs     term.Term
}

type binding struct {
	term  term.Term
	class egraph.ClassID
}

// Session is one equality-saturation run over an exclusively owned e-graph.
type Session struct {
	id    string
	state State
	// failed poisons the session after a schema error.
	failed error

	sorts map[term.Sort]bool
	sig   signature

	rulesets map[string][]*rule
	ruleSets []string
	rules    map[string]*rule
	ruleSeq  int

	graph    *egraph.EGraph
	bindings map[string]binding

	maxIterations int
	nodeLimit     int
	idGen         SessionIDGenerator
	cost          egraph.CostFunc

	quota     *QuotaEnforcer
	extractor *egraph.Extractor
	extracted uint64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxIterations sets the iteration quota of each Run.
//
// Default: 1000 (DefaultMaxIterations)
func WithMaxIterations(n int) SessionOption {
	return func(s *Session) {
		s.maxIterations = n
	}
}

// WithNodeLimit caps the number of e-nodes. A run that grows the e-graph
// past the limit stops with BUDGET_EXCEEDED.
//
// Default: 100000 (DefaultNodeLimit)
func WithNodeLimit(n int) SessionOption {
	return func(s *Session) {
		s.nodeLimit = n
	}
}

// WithIDGenerator sets the session id source. Tests use FixedGenerator.
func WithIDGenerator(gen SessionIDGenerator) SessionOption {
	return func(s *Session) {
		s.idGen = gen
	}
}

// WithCostFunc replaces the extraction cost model (default egraph.AstSize).
func WithCostFunc(fn egraph.CostFunc) SessionOption {
	return func(s *Session) {
		s.cost = fn
	}
}

// NewSession creates an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		sorts:         map[term.Sort]bool{term.SortI64: true, term.SortString: true},
		sig:           signature{},
		rulesets:      map[string][]*rule{DefaultRuleset: nil},
		rules:         map[string]*rule{},
		graph:         egraph.New(),
		bindings:      map[string]binding{},
		maxIterations: DefaultMaxIterations,
		nodeLimit:     DefaultNodeLimit,
		idGen:         UUIDv7Generator{},
		cost:          egraph.AstSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = s.idGen.Generate()
	s.quota = NewQuotaEnforcer(s.maxIterations)
	slog.Debug("session created",
		"session", s.id,
		"max_iterations", s.maxIterations,
		"node_limit", s.nodeLimit,
	)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

func (s *Session) advance(to State) {
	if to > s.state {
		slog.Debug("session state", "session", s.id, "from", s.state, "to", to)
		s.state = to
	}
}

func (s *Session) usable(op string) error {
	if s.failed != nil {
		return newError(ErrCodeInvalidState, s.id, s.failed, "%s: session aborted by an earlier schema error", op)
	}
	return nil
}

func (s *Session) requireSchema(op string) error {
	if err := s.usable(op); err != nil {
		return err
	}
	if s.state < StateSchemaLoaded {
		return newError(ErrCodeInvalidState, s.id, nil, "%s requires a schema (state %s)", op, s.state)
	}
	return nil
}

// LoadSchema declares sorts and constructors. The batch is all or nothing:
// sort references are resolved once the whole batch is declared, so a
// datatype may mention a sort declared later in the same batch. Any schema
// error aborts the session.
func (s *Session) LoadSchema(cmds []program.Command) error {
	if err := s.usable("load schema"); err != nil {
		return err
	}
	if s.state > StateSchemaLoaded {
		return newError(ErrCodeInvalidState, s.id, nil, "cannot load schema in state %s", s.state)
	}

	sorts := make(map[term.Sort]bool, len(s.sorts))
	for k, v := range s.sorts {
		sorts[k] = v
	}
	sig := make(signature, len(s.sig))
	for k, v := range s.sig {
		sig[k] = v
	}
	declare := func(c term.Constructor) error {
		if _, dup := sig[c.Name]; dup {
			return newError(ErrCodeSchemaCollision, s.id, nil, "constructor %s already declared", c.Name)
		}
		sig[c.Name] = c
		return nil
	}

	for _, cmd := range cmds {
		var err error
		switch c := cmd.(type) {
		case program.DeclareSort:
			if sorts[c.Name] {
				err = newError(ErrCodeSchemaCollision, s.id, nil, "sort %s already declared", c.Name)
				break
			}
			sorts[c.Name] = true
			if c.Container != "" {
				err = declare(term.Constructor{Name: string(c.Name), Sort: c.Name, Args: []term.Sort{c.Elem}, Variadic: true})
			}
		case program.DeclareDatatype:
			if sorts[c.Name] {
				err = newError(ErrCodeSchemaCollision, s.id, nil, "sort %s already declared", c.Name)
				break
			}
			sorts[c.Name] = true
			for _, v := range c.Variants {
				if err = declare(term.Constructor{Name: v.Name, Sort: c.Name, Args: slices.Clone(v.Args)}); err != nil {
					break
				}
			}
		default:
			err = newError(ErrCodeInvalidSchema, s.id, nil, "not a schema command: %s", cmd)
		}
		if err != nil {
			return s.abort(err)
		}
	}

	for _, c := range sig {
		for _, a := range c.Args {
			if !sorts[a] {
				return s.abort(newError(ErrCodeInvalidSchema, s.id, nil, "constructor %s refers to undeclared sort %s", c.Name, a))
			}
		}
	}

	s.sorts, s.sig = sorts, sig
	s.advance(StateSchemaLoaded)
	slog.Info("schema loaded",
		"session", s.id,
		"commands", len(cmds),
		"constructors", len(s.sig),
	)
	return nil
}

func (s *Session) abort(err error) error {
	s.failed = err
	slog.Error("schema rejected, session aborted", "session", s.id, "error", err)
	return err
}

// LoadRules parses DSL source and loads its rulesets and rewrites.
func (s *Session) LoadRules(src string) error {
	if err := s.requireSchema("load rules"); err != nil {
		return err
	}
	cmds, err := program.ParseCommands("rules", src)
	if err != nil {
		return newError(ErrCodeRuleParse, s.id, err, "rules do not parse")
	}
	return s.LoadRuleCommands(cmds)
}

// LoadRuleCommands loads ruleset and rewrite commands. Patterns are checked
// against the declared constructors; a rewrite must mention only rulesets
// declared earlier. The batch is all or nothing.
func (s *Session) LoadRuleCommands(cmds []program.Command) error {
	if err := s.requireSchema("load rules"); err != nil {
		return err
	}

	var (
		newSets  []string
		newRules []*rule
		names    = map[string]bool{}
		seq      = s.ruleSeq
	)
	known := func(rs string) bool {
		_, ok := s.rulesets[rs]
		return ok || slices.Contains(newSets, rs)
	}
	add := func(r *rule) error {
		if _, dup := s.rules[r.name]; dup || names[r.name] {
			return &Error{Code: ErrCodeRuleParse, Message: "duplicate rule name", SessionID: s.id, Rule: r.name}
		}
		names[r.name] = true
		newRules = append(newRules, r)
		return nil
	}

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case program.Ruleset:
			if known(c.Name) {
				return newError(ErrCodeRuleParse, s.id, nil, "ruleset %s already declared", c.Name)
			}
			newSets = append(newSets, c.Name)
		case program.Rewrite:
			if !known(c.Ruleset) {
				return newError(ErrCodeRuleParse, s.id, nil, "undeclared ruleset %s", c.Ruleset)
			}
			name := c.Name
			if name == "" {
				name = fmt.Sprintf("rule-%d", seq)
			}
			seq++
			if err := s.checkRewrite(name, c.LHS, c.RHS, c.Bidirectional); err != nil {
				return err
			}
			if err := add(&rule{name: name, ruleset: c.Ruleset, lhs: c.LHS, rhs: c.RHS}); err != nil {
				return err
			}
			if c.Bidirectional {
				if err := add(&rule{name: name + "-rev", ruleset: c.Ruleset, lhs: c.RHS, rhs: c.LHS}); err != nil {
					return err
				}
			}
		default:
			return newError(ErrCodeRuleParse, s.id, nil, "not a rule command: %s", cmd)
		}
	}

	for _, rs := range newSets {
		s.rulesets[rs] = nil
		s.ruleSets = append(s.ruleSets, rs)
	}
	for _, r := range newRules {
		s.rulesets[r.ruleset] = append(s.rulesets[r.ruleset], r)
		s.rules[r.name] = r
	}
	s.ruleSeq = seq
	s.advance(StateRulesLoaded)
	slog.Info("rules loaded",
		"session", s.id,
		"rulesets", len(newSets),
		"rules", len(newRules),
	)
	return nil
}

func (s *Session) checkRewrite(name string, lhs, rhs term.Term, bidirectional bool) error {
	fail := func(cause error, format string, args ...any) error {
		e := newError(ErrCodeRuleParse, s.id, cause, format, args...)
		e.Rule = name
		return e
	}
	head, ok := lhs.(*term.App)
	if !ok {
		return fail(nil, "left-hand side must be a constructor application, got %s", lhs)
	}
	c, ok := s.sig.Constructor(head.Sym)
	if !ok {
		return fail(nil, "unknown constructor %s", head.Sym)
	}
	vars := map[term.Var]term.Sort{}
	if err := term.CheckPattern(s.sig, lhs, c.Sort, vars); err != nil {
		return fail(err, "ill-typed left-hand side")
	}
	if err := term.CheckPattern(s.sig, rhs, c.Sort, vars); err != nil {
		return fail(err, "ill-typed right-hand side")
	}
	if err := coveredVars(rhs, lhs); err != nil {
		return fail(err, "right-hand side")
	}
	if bidirectional {
		if _, ok := rhs.(*term.App); !ok {
			return fail(nil, "reversible rule needs an application on both sides")
		}
		if err := coveredVars(lhs, rhs); err != nil {
			return fail(err, "left-hand side")
		}
	}
	return nil
}

func coveredVars(t, by term.Term) error {
	bound := term.Vars(by)
	for _, v := range term.Vars(t) {
		if !slices.Contains(bound, v) {
			return fmt.Errorf("variable %s is not bound by the pattern", v)
		}
	}
	return nil
}

// LoadFacts inserts let bindings. Reloading a binding with an identical term
// is a no-op; rebinding a name to a different term fails.
func (s *Session) LoadFacts(cmds []program.Command) error {
	if err := s.requireSchema("load facts"); err != nil {
		return err
	}
	lets := make([]program.Let, 0, len(cmds))
	batch := make(map[string]term.Term, len(cmds))
	for _, cmd := range cmds {
		l, ok := cmd.(program.Let)
		if !ok {
			return newError(ErrCodeFactLoad, s.id, nil, "not a fact: %s", cmd)
		}
		if _, err := term.SortOf(s.sig, l.Term); err != nil {
			return newError(ErrCodeFactLoad, s.id, err, "fact %s is ill-typed", l.Name)
		}
		if prev, ok := s.bindings[l.Name]; ok && !term.Equal(prev.term, l.Term) {
			return newError(ErrCodeFactLoad, s.id, nil, "%s is already bound to a different term", l.Name)
		}
		if prev, ok := batch[l.Name]; ok {
			if !term.Equal(prev, l.Term) {
				return newError(ErrCodeFactLoad, s.id, nil, "%s is bound twice to different terms", l.Name)
			}
			continue
		}
		batch[l.Name] = l.Term
		lets = append(lets, l)
	}

	added := 0
	for _, l := range lets {
		if _, ok := s.bindings[l.Name]; ok {
			continue
		}
		id, err := s.graph.Add(l.Term)
		if err != nil {
			return newError(ErrCodeFactLoad, s.id, err, "fact %s", l.Name)
		}
		s.bindings[l.Name] = binding{term: l.Term, class: id}
		added++
	}
	s.graph.Rebuild()
	s.advance(StateFactsLoaded)
	slog.Info("facts loaded",
		"session", s.id,
		"added", added,
		"nodes", s.graph.NumNodes(),
	)
	return nil
}

// Extract returns the cheapest term equivalent to a bound fact. Before any
// run this is the fact itself.
func (s *Session) Extract(name string) (term.Term, error) {
	if err := s.usable("extract"); err != nil {
		return nil, err
	}
	b, ok := s.bindings[name]
	if !ok {
		return nil, newError(ErrCodeExtraction, s.id, nil, "no binding named %s", name)
	}
	if s.extractor == nil || s.extracted != s.graph.Version() {
		s.extractor = egraph.NewExtractor(s.graph, s.cost)
		s.extracted = s.graph.Version()
	}
	t, err := s.extractor.Extract(b.class)
	if err != nil {
		return nil, newError(ErrCodeExtraction, s.id, err, "binding %s", name)
	}
	s.advance(StateExtracted)
	return t, nil
}

// Bindings returns the bound fact names in sorted order.
func (s *Session) Bindings() []string {
	out := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Equivalent reports whether two bound facts share a class.
func (s *Session) Equivalent(a, b string) (bool, error) {
	ba, ok := s.bindings[a]
	if !ok {
		return false, newError(ErrCodeExtraction, s.id, nil, "no binding named %s", a)
	}
	bb, ok := s.bindings[b]
	if !ok {
		return false, newError(ErrCodeExtraction, s.id, nil, "no binding named %s", b)
	}
	return s.graph.Find(ba.class) == s.graph.Find(bb.class), nil
}

// RelationSize counts the e-nodes built with a constructor.
func (s *Session) RelationSize(sym string) int {
	n := 0
	for _, id := range s.graph.ClassIDs() {
		for _, node := range s.graph.Class(id).Nodes {
			if node.Sym == sym {
				n++
			}
		}
	}
	return n
}

// NumNodes is the number of e-nodes.
func (s *Session) NumNodes() int { return s.graph.NumNodes() }

// NumClasses is the number of e-classes.
func (s *Session) NumClasses() int { return s.graph.NumClasses() }

// Rulesets returns the declared ruleset names in declaration order, starting
// with the default ruleset.
func (s *Session) Rulesets() []string {
	return append([]string{DefaultRuleset}, s.ruleSets...)
}
