package services

import (
	"fmt"
	"strings"
)

// Personas framing every model call. The pipeline treats the model's answer
// as opaque text; the identify schema below is requested but never parsed
// back into typed fields.
const (
	chatPersona = "You are AgriAgent, an expert agricultural assistant for smallholder farmers. " +
		"Provide clear, practical, low-cost advice in simple language."

	identifyPersona = "You are AgriAgent, an agronomist diagnosing problems from photos sent by " +
		"smallholder farmers. Be concise, practical and safe."
)

// identifySchema fixes the labeled-field output format requested for
// structured identification.
const identifySchema = `Reply using exactly this format:
Identified: <the crop, animal, insect or soil you see>
Likely Problem: <diagnosis, or "none visible">
Confidence: <high | medium | low>
Why: <one-sentence rationale>
What To Do Now: <up to three practical steps>
Prevention Tips: <up to three tips>
Benefits: <what the farmer gains by acting now>`

// BuildChatPrompt wraps a plain chat message in the persona framing. No
// output schema is imposed.
func BuildChatPrompt(message string) (system, prompt string) {
	return chatPersona, fmt.Sprintf("Farmer says: %s", message)
}

// BuildIdentifyPrompt assembles the structured identification instruction
// from the message body and the optional farmer-supplied context hint.
func BuildIdentifyPrompt(body, contextHint string) (system, prompt string) {
	var sb strings.Builder
	sb.WriteString("Analyze the attached photo for pests, diseases, nutrient deficiencies or health issues.\n")
	if body != "" {
		fmt.Fprintf(&sb, "Farmer says: %s\n", body)
	}
	if contextHint != "" {
		fmt.Fprintf(&sb, "Additional context from the farmer: %s\n", contextHint)
	}
	sb.WriteString("\n")
	sb.WriteString(identifySchema)
	return identifyPersona, sb.String()
}
