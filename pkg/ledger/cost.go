package ledger

import (
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

// Cost computes the credit cost of a completed call:
//
//	cost = base_cost + per_unit_rate * billable_units
//
// Billable units depend on the modality: token count for chat and
// vision, item count for embeddings, whole seconds for audio. The
// provider adapters encode those conventions into Usage, so here the
// unit total is simply summed.
func Cost(desc *catalog.ModelDescriptor, usage providers.Usage) float64 {
	return desc.Cost.BaseCost + desc.Cost.PerUnitRate*float64(usage.Total())
}

// Estimate computes the pre-flight cost ceiling used for admission.
// Input tokens are approximated at four characters per token and
// output is assumed to reach the request's cap, so a passing estimate
// means the worst-case final charge is very likely covered.
func Estimate(desc *catalog.ModelDescriptor, modality catalog.Modality, promptLen, maxOutput, items int, seconds float64) float64 {
	var units float64
	switch modality {
	case catalog.ModalityChat, catalog.ModalityVision:
		out := maxOutput
		if out <= 0 {
			out = desc.MaxOutputTokens
		}
		units = float64(promptLen/4 + out)
	case catalog.ModalityEmbedding:
		units = float64(items)
	case catalog.ModalityAudio:
		units = seconds
		if units > float64(int64(units)) {
			units = float64(int64(units) + 1)
		}
	}
	return desc.Cost.BaseCost + desc.Cost.PerUnitRate*units
}
