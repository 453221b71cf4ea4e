// Package router classifies utterances so that short factual questions hit
// a fast small model while anything technical or long-form goes to the
// larger tier.
package router

import (
	"log"
	"strings"

	"github.com/deskpilot-dev/deskpilot/internal/llm/keypool"
)

// complexTriggers marks an utterance as needing the larger model tier when
// any of them appears as a substring of the lowercased text.
var complexTriggers = []string{
	// coding terms
	"code", "function", "class", "method", "variable", "loop", "array", "list",
	"python", "java", "script", "react", "node", "sql", "database", "html", "css",
	"algorithm", "structure", "complexity", "optimize", "debug", "error", "fix",
	"api", "endpoint", "json", "xml", "docker", "kubernetes", "aws", "cloud",

	// interview and logic terms
	"interview", "design", "architecture", "scalability", "system",
	"solve", "solution", "leetcode", "hackerrank", "puzzle", "riddle",
	"explain", "describe", "difference", "compare", "pros", "cons",
	"why", "how", "what if", "scenario", "example",

	// format requests
	"write", "create", "generate", "build", "implement",
}

// Router maps an utterance to a keypool tier and model name.
type Router struct {
	wordLimit    int
	simpleModel  string
	complexModel string
}

// New builds a router. wordLimit is the word count above which an
// utterance is always routed to the complex tier.
func New(wordLimit int, simpleModel, complexModel string) *Router {
	return &Router{wordLimit: wordLimit, simpleModel: simpleModel, complexModel: complexModel}
}

// ComplexModel returns the model serving the complex tier.
func (r *Router) ComplexModel() string { return r.complexModel }

// Decision is the routing outcome for one utterance.
type Decision struct {
	Tier   keypool.Tier
	Model  string
	Reason string
}

// Route classifies text. Empty or whitespace-only input routes to the
// complex tier.
func (r *Router) Route(text string) Decision {
	if strings.TrimSpace(text) == "" {
		return Decision{Tier: keypool.TierComplex, Model: r.complexModel, Reason: "empty input"}
	}

	words := len(strings.Fields(text))
	if words > r.wordLimit {
		log.Printf("[Router] complexity high (%d words), using %s", words, r.complexModel)
		return Decision{Tier: keypool.TierComplex, Model: r.complexModel, Reason: "long query"}
	}

	lower := strings.ToLower(text)
	for _, trigger := range complexTriggers {
		if strings.Contains(lower, trigger) {
			log.Printf("[Router] complexity high (keyword %q), using %s", trigger, r.complexModel)
			return Decision{Tier: keypool.TierComplex, Model: r.complexModel, Reason: "keyword: " + trigger}
		}
	}

	log.Printf("[Router] complexity low, using %s", r.simpleModel)
	return Decision{Tier: keypool.TierSimple, Model: r.simpleModel, Reason: "short and simple"}
}
