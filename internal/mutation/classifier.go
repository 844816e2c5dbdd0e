package mutation

import (
	"fmt"
	"strings"

	"war-api-analyzer/internal/domain"

	"go.uber.org/zap"
)

// HTTP verbs that alter state by convention.
var stateAlteringVerbs = map[string]bool{
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

// Method name tokens that suggest state alteration.
var mutatingNameTokens = []string{
	"create", "save", "update", "modify", "edit", "delete", "remove",
	"insert", "add", "set", "put", "post", "patch", "persist", "merge",
	"store", "write", "commit", "submit", "process", "execute", "apply",
}

// Persistence-layer call names that alter state.
var persistenceCallTokens = []string{
	"save", "saveall", "saveandflush", "delete", "deleteall", "deletebyid",
	"persist", "merge", "remove", "update", "flush", "clear", "refresh",
	"createquery", "createnativequery", "createnamedquery",
}

// Repository call names that alter state.
var repositoryCallTokens = []string{
	"save", "update", "delete", "remove", "create", "insert", "modify", "edit",
}

// Derived-query prefixes generated by data-access frameworks.
var derivedQueryTokens = []string{
	"deleteallby", "removeby", "deleteby", "updateby", "saveby",
}

// Service call names that suggest state alteration.
var serviceCallTokens = []string{
	"process", "handle", "execute", "perform", "apply", "commit", "submit",
}

// Business-operation tokens in service calls.
var businessOperationTokens = []string{
	"approve", "reject", "cancel", "activate", "deactivate",
	"enable", "disable", "publish", "unpublish", "archive",
	"restore", "validate", "confirm", "complete", "finalize",
	"authorize", "authenticate", "register", "enroll", "subscribe",
	"unsubscribe", "transfer", "import", "export", "sync", "migrate",
}

// signal is one of the orthogonal heuristics whose disjunction decides
// alters_state. Signals are a flat predicate set, composed by
// short-circuit OR.
type signal struct {
	name   string
	weight float64
	fires  func(method *domain.HandlerMethod) bool
}

// Classifier decides whether a handler mutates persistent state.
type Classifier struct {
	signals []signal
	logger  *zap.Logger
}

// NewClassifier creates a new state-alteration classifier
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{
		logger: logger,
		signals: []signal{
			{name: "verb", weight: 0.30, fires: hasStateAlteringVerb},
			{name: "name", weight: 0.20, fires: hasMutatingName},
			{name: "transaction", weight: 0.25, fires: hasWritableTransaction},
			{name: "persistence", weight: 0.20, fires: hasPersistenceCall},
			{name: "repository", weight: 0.15, fires: hasRepositoryCall},
			{name: "service", weight: 0.10, fires: hasServiceCall},
		},
	}
}

// AltersState reports whether any of the six signals fires.
func (c *Classifier) AltersState(method *domain.HandlerMethod) bool {
	for _, s := range c.signals {
		if s.fires(method) {
			c.logger.Debug("State alteration signal fired",
				zap.String("class", method.ClassName),
				zap.String("method", method.MethodName),
				zap.String("signal", s.name))
			return true
		}
	}
	return false
}

// Confidence returns the weighted sum of fired signals, capped at 1.0.
// It is independent of the boolean verdict.
func (c *Classifier) Confidence(method *domain.HandlerMethod) float64 {
	confidence := 0.0
	for _, s := range c.signals {
		if s.fires(method) {
			confidence += s.weight
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// Details renders a per-signal breakdown for debugging.
func (c *Classifier) Details(method *domain.HandlerMethod) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "State alteration analysis for %s.%s:\n", method.ClassName, method.MethodName)
	for _, s := range c.signals {
		verdict := "no"
		if s.fires(method) {
			verdict = "FIRED"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", s.name, verdict)
	}
	fmt.Fprintf(&sb, "- confidence: %.2f\n", c.Confidence(method))
	return sb.String()
}

func hasStateAlteringVerb(method *domain.HandlerMethod) bool {
	for _, verb := range method.HTTPMethods {
		if stateAlteringVerbs[verb] {
			return true
		}
	}
	return false
}

func hasMutatingName(method *domain.HandlerMethod) bool {
	name := strings.ToLower(method.MethodName)
	return containsAny(name, mutatingNameTokens)
}

// hasWritableTransaction fires for a transactional handler whose readOnly
// attribute is not literally true.
func hasWritableTransaction(method *domain.HandlerMethod) bool {
	return method.Transactional && !method.ReadOnly
}

func hasPersistenceCall(method *domain.HandlerMethod) bool {
	for _, call := range method.CalledMethods {
		if containsAny(strings.ToLower(call), persistenceCallTokens) {
			return true
		}
	}
	return false
}

func hasRepositoryCall(method *domain.HandlerMethod) bool {
	for _, call := range method.CalledMethods {
		lower := strings.ToLower(call)
		if !strings.Contains(lower, "repository") && !strings.Contains(lower, "dao") {
			continue
		}
		if containsAny(lower, repositoryCallTokens) || containsAny(lower, derivedQueryTokens) {
			return true
		}
	}
	return false
}

func hasServiceCall(method *domain.HandlerMethod) bool {
	for _, call := range method.CalledMethods {
		lower := strings.ToLower(call)
		if !strings.Contains(lower, "service") {
			continue
		}
		if containsAny(lower, serviceCallTokens) || containsAny(lower, businessOperationTokens) {
			return true
		}
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
