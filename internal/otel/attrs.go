package otel

import "go.opentelemetry.io/otel/attribute"

// Gen AI semantic convention attribute keys used by the validator's LLM
// calls.
var (
	GenAISystem             = attribute.Key("gen_ai.system")
	GenAIRequestModel       = attribute.Key("gen_ai.request.model")
	GenAIRequestMaxTokens   = attribute.Key("gen_ai.request.max_tokens")
	GenAIRequestTemperature = attribute.Key("gen_ai.request.temperature")
	GenAIUsageInputTokens   = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokens  = attribute.Key("gen_ai.usage.output_tokens")
	GenAIResponseFinish     = attribute.Key("gen_ai.response.finish_reason")
)
