package chat

import (
	"parley/internal/capabilities"
)

// Strategy is the request-construction and provider-routing path chosen
// for one chat turn.
type Strategy string

const (
	StrategyAssistant          Strategy = "assistant-thread"
	StrategyExternalInference  Strategy = "external-inference"
	StrategySimple             Strategy = "simple"
	StrategyMultimodal         Strategy = "multimodal"
	StrategyRetrievalAugmented Strategy = "retrieval-augmented"
	StrategyExtensions         Strategy = "extensions"
)

// SelectStrategy classifies one turn. First match wins; the ordering is
// a deliberate priority. The function is total and side-effect-free:
// every input combination maps to exactly one strategy.
//
// Assistant-capable models short-circuit everything else: such a model
// is a provider-side assistant deployment and only speaks the run/poll
// flow. After that, vendor family, then the legacy downgrade, then the
// per-turn signals (image, documents in scope), and extensions as the
// uniform default. A turn with no callable tools still routes through
// extensions with an empty tool list, keeping one code path.
//
// documentsInScope covers every retrieval source: documents attached to
// the thread and documents indexed for the thread's persona.
func SelectStrategy(caps *capabilities.ModelCapabilities, imageAttached, documentsInScope bool) Strategy {
	switch {
	case caps.AssistantCapable:
		return StrategyAssistant
	case caps.Family == capabilities.FamilyMistral:
		return StrategyExternalInference
	case caps.Legacy:
		return StrategySimple
	case imageAttached:
		return StrategyMultimodal
	case documentsInScope:
		return StrategyRetrievalAugmented
	default:
		return StrategyExtensions
	}
}
