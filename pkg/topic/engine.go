package topic

import (
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/papercomputeco/drift/pkg/logger"
	"github.com/papercomputeco/drift/pkg/taxonomy"
	"github.com/papercomputeco/drift/pkg/utils"
)

// Default engine tuning. A single signal hit is enough to decide a topic;
// the continuity bonus keeps short ambiguous messages from flapping away
// from the current topic.
const (
	DefaultBoost              = 0.3
	DefaultScoreThreshold     = 1.0
	DefaultContinuityBonus    = 0.25
	DefaultRetentionThreshold = 0.05
)

const (
	maxEntities  = 32
	maxSummaries = 10
	summaryLen   = 80
)

// Config tunes the engine. Zero values fall back to defaults in
// ApplyDefaults, so an empty Config is usable.
type Config struct {
	// Boost is added to the decided topic's confidence on each mention.
	Boost float64

	// ScoreThreshold is the minimum raw match score a topic needs to become
	// the decision. Below it the previous current topic stands.
	ScoreThreshold float64

	// ContinuityBonus is added to the previous current topic's raw score
	// when it matched at least one signal.
	ContinuityBonus float64

	// RetentionThreshold is the confidence at or below which an idle topic
	// is dropped from the active set.
	RetentionThreshold float64

	// Decay shapes how idle topics lose confidence. Defaults to
	// ExponentialDecay(DefaultHalfLife).
	Decay DecayFunc

	// IsExplicitSwitch decides whether a message deliberately changes
	// subject. Defaults to Markers(DefaultMarkers()).
	IsExplicitSwitch MarkerPredicate
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Boost <= 0 {
		c.Boost = DefaultBoost
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.ContinuityBonus <= 0 {
		c.ContinuityBonus = DefaultContinuityBonus
	}
	if c.RetentionThreshold <= 0 {
		c.RetentionThreshold = DefaultRetentionThreshold
	}
	if c.Decay == nil {
		c.Decay = ExponentialDecay(DefaultHalfLife)
	}
	if c.IsExplicitSwitch == nil {
		c.IsExplicitSwitch = Markers(DefaultMarkers())
	}
}

// Engine scores messages against a taxonomy and folds the results into
// per-conversation context state. Inference is a pure function of its
// inputs; the only engine-level mutability is the taxonomy swap used by the
// file watcher, which is guarded for concurrent readers.
type Engine struct {
	mu  sync.RWMutex
	def *taxonomy.Definition

	cfg Config
	log *slog.Logger
}

// NewEngine builds an engine over the given taxonomy. A nil definition
// falls back to taxonomy.Default(); a nil logger discards output.
func NewEngine(def *taxonomy.Definition, cfg Config, log *slog.Logger) *Engine {
	cfg.ApplyDefaults()
	if def == nil {
		def = taxonomy.Default()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Engine{def: def, cfg: cfg, log: log}
}

// SetTaxonomy swaps the vocabulary, typically from a taxonomy.Watcher.
func (e *Engine) SetTaxonomy(def *taxonomy.Definition) {
	if def == nil {
		return
	}

	e.mu.Lock()
	e.def = def
	e.mu.Unlock()

	e.log.Debug("taxonomy swapped", "topics", len(def.Topics))
}

// Taxonomy returns the definition currently in effect.
func (e *Engine) Taxonomy() *taxonomy.Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.def
}

// Infer scores message against the taxonomy and returns the topic decision.
// ok is false when the message is empty or no topic clears the score
// threshold, meaning the previous current topic stands. The continuity
// bonus only applies to a previous topic that matched at least one signal,
// so pure noise never re-decides anything.
func (e *Engine) Infer(message string, prev *ConversationContext) (TopicDecision, bool) {
	if strings.TrimSpace(message) == "" {
		return TopicDecision{}, false
	}

	e.mu.RLock()
	def := e.def
	e.mu.RUnlock()

	previous := ""
	if prev != nil {
		previous = prev.Current
	}

	lower := strings.ToLower(message)
	words := tokenize(lower)

	var (
		bestID      string
		bestScore   float64
		bestMatched []string
	)

	for _, t := range def.Topics {
		var matched []string
		hits := 0
		for _, signal := range t.Signals {
			n := matchCount(lower, words, strings.ToLower(signal))
			if n > 0 {
				hits += n
				matched = append(matched, signal)
			}
		}
		if hits == 0 {
			continue
		}

		score := float64(hits)
		if t.ID == previous {
			score += e.cfg.ContinuityBonus
		}

		// Topics iterate in declaration order, which is the priority order,
		// so on equal scores the earlier topic stands unless the challenger
		// is the previous current topic.
		if score > bestScore || (score == bestScore && t.ID == previous) {
			bestID = t.ID
			bestScore = score
			bestMatched = matched
		}
	}

	if bestID == "" || bestScore < e.cfg.ScoreThreshold {
		return TopicDecision{}, false
	}

	return TopicDecision{
		TopicID:        bestID,
		Confidence:     decisionConfidence(bestScore),
		MatchedSignals: bestMatched,
	}, true
}

// ApplyDecision folds a decision into the active topic set at time now:
// the decided topic is boosted and stamped, every other topic decays by its
// idle time, and topics at or below the retention threshold are dropped.
// Their transitions stay in history.
func (e *Engine) ApplyDecision(c *ConversationContext, decision TopicDecision, now time.Time) {
	for id, t := range c.Topics {
		if id == decision.TopicID {
			continue
		}

		t.Confidence = clamp01(e.cfg.Decay(t.Confidence, now.Sub(t.LastDiscussed)))
		if t.Confidence <= e.cfg.RetentionThreshold {
			delete(c.Topics, id)
			continue
		}
		c.Topics[id] = t
	}

	prev := c.Topics[decision.TopicID]
	c.Topics[decision.TopicID] = Topic{
		ID:            decision.TopicID,
		Confidence:    clamp01(prev.Confidence + e.cfg.Boost),
		LastDiscussed: now,
	}

	c.UpdatedAt = now
}

// DetectTransition compares the previous current topic with a decision.
// Returns nil when nothing changed or when the conversation had no previous
// topic: the first topic establishes a baseline, not a transition. Only
// user messages can mark a transition explicit.
func (e *Engine) DetectTransition(previous string, prevConfidence float64, decision TopicDecision, message string, role Role, now time.Time) *Transition {
	if previous == "" || decision.TopicID == "" || decision.TopicID == previous {
		return nil
	}

	return &Transition{
		From:            previous,
		To:              decision.TopicID,
		At:              now,
		Explicit:        role == RoleUser && e.cfg.IsExplicitSwitch(message),
		ConfidenceDelta: decision.Confidence - prevConfidence,
	}
}

// Track runs one message through the full pipeline against c: inference,
// confidence update, transition detection, and metadata accumulation. It
// mutates c in place and returns the recorded transition, if any, alongside
// the decision. ok is false when the message produced no decision.
func (e *Engine) Track(c *ConversationContext, message string, role Role, now time.Time) (*Transition, TopicDecision, bool) {
	decision, ok := e.Infer(message, c)
	if !ok {
		// Noise establishes nothing; only the rolling metadata moves.
		e.accumulateMetadata(c, message, now)
		return nil, TopicDecision{}, false
	}

	previous := c.Current
	prevConfidence := c.CurrentConfidence()

	e.ApplyDecision(c, decision, now)

	transition := e.DetectTransition(previous, prevConfidence, decision, message, role, now)
	if transition != nil {
		c.Transitions = append(c.Transitions, *transition)
		e.log.Debug("topic transition",
			"conversation", c.ID,
			"from", transition.From,
			"to", transition.To,
			"explicit", transition.Explicit,
		)
	}

	c.Current = decision.TopicID
	e.accumulateMetadata(c, message, now)

	return transition, decision, true
}

// accumulateMetadata folds a message into the derived response-shaping
// state: distinct capitalized tokens as entity hints and a rolling window
// of one-line summaries.
func (e *Engine) accumulateMetadata(c *ConversationContext, message string, now time.Time) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}

	for _, ent := range extractEntities(trimmed) {
		if !slices.Contains(c.Metadata.Entities, ent) {
			c.Metadata.Entities = append(c.Metadata.Entities, ent)
		}
	}
	if n := len(c.Metadata.Entities); n > maxEntities {
		c.Metadata.Entities = c.Metadata.Entities[n-maxEntities:]
	}

	c.Metadata.Summaries = append(c.Metadata.Summaries, utils.Truncate(trimmed, summaryLen))
	if n := len(c.Metadata.Summaries); n > maxSummaries {
		c.Metadata.Summaries = c.Metadata.Summaries[n-maxSummaries:]
	}

	c.UpdatedAt = now
}

// extractEntities pulls capitalized tokens after the first word. Crude but
// deterministic; consumers treat entities as hints only.
func extractEntities(message string) []string {
	words := strings.Fields(message)

	var out []string
	for i, w := range words {
		if i == 0 {
			continue
		}
		trimmed := strings.Trim(w, ".,!?;:\"'()")
		runes := []rune(trimmed)
		if len(runes) < 3 {
			continue
		}
		if unicode.IsUpper(runes[0]) {
			out = append(out, trimmed)
		}
	}
	return out
}

// decisionConfidence saturates a raw match score into [0,1]: one signal hit
// lands at 0.5 and each additional hit halves the remaining distance to 1.
func decisionConfidence(score float64) float64 {
	return clamp01(1 - math.Pow(0.5, score))
}

// tokenize splits lowercased text into word tokens.
func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// matchCount counts occurrences of a signal in a message: word-boundary
// hits for single words, substring hits for multi-word phrases. Both inputs
// must already be lowercased.
func matchCount(lower string, words []string, signal string) int {
	if strings.Contains(signal, " ") {
		return strings.Count(lower, signal)
	}

	count := 0
	for _, w := range words {
		if w == signal {
			count++
		}
	}
	return count
}
