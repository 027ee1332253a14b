package synth

import (
	"fmt"

	"github.com/mohammad-safakhou/accountplan/internal/intent"
	"github.com/mohammad-safakhou/accountplan/internal/plan"
	"github.com/mohammad-safakhou/accountplan/provider"
)

const (
	planTemperature  = 0.2
	planMaxTokens    = 1200
	summaryMaxTokens = 300
	deeperMaxTokens  = 500
	editMaxTokens    = 1000
)

func planMessages(persona intent.Persona, format intent.Format, context, request string) []provider.Message {
	system := fmt.Sprintf("You are ResearchGPT — produce a structured account plan in JSON following the schema. "+
		"User persona: %s. Output preference: %s. If asked, provide a short summary, pitch, or bullets. "+
		"If facts conflict across sources, include a 'conflicts' field listing the differing values and their sources.",
		persona, format)

	user := fmt.Sprintf(`
Your role: You research companies and create account plans.

Use ONLY the following context and user request.

CONTEXT:
%s

USER REQUEST:
%s

TASK:
Generate an accurate Account Plan following this schema:
%s

Rules:
- If sources conflict, add a field "conflicts".
- Keep the JSON clean and valid.
`, context, request, plan.Schema)

	return []provider.Message{
		{Role: provider.RoleSystem, Content: system},
		{Role: provider.RoleUser, Content: user},
	}
}

func summaryMessages(doc *plan.Document, format intent.Format) []provider.Message {
	var ask string
	switch format {
	case intent.FormatShort:
		ask = "Provide a concise 3-line summary."
	case intent.FormatPitch:
		ask = "Provide a pitch-style one-paragraph summary."
	default:
		ask = "Provide the plan as 6 concise bullet points."
	}
	return []provider.Message{
		{Role: provider.RoleSystem, Content: "You are a summarizer."},
		{Role: provider.RoleUser, Content: fmt.Sprintf("Given the following account plan JSON:\n%s\n\n%s", doc.String(), ask)},
	}
}

func deeperMessages(topic, context string) []provider.Message {
	user := "You are doing a deeper research for the specific topic: " + topic + "\n\n" +
		"Context:\n" + context + "\n\n" +
		"Task: Re-evaluate and reconcile conflicting facts about " + topic + ". Provide the most likely value and cite sources. " +
		"If still uncertain, indicate uncertainty and list differing sources."
	return []provider.Message{
		{Role: provider.RoleSystem, Content: "You are a research assistant that reconciles facts using new context."},
		{Role: provider.RoleUser, Content: user},
	}
}

func editMessages(doc *plan.Document) []provider.Message {
	user := "User edited the account plan. Update and re-summarize the entire account plan to keep it consistent.\n\n" +
		"Current plan (JSON):\n" + doc.String() + "\n\n" +
		"Schema:\n" + plan.Schema + "\n\n" +
		"Produce valid JSON following the schema."
	return []provider.Message{
		{Role: provider.RoleSystem, Content: "You are ResearchGPT; produce a corrected plan JSON."},
		{Role: provider.RoleUser, Content: user},
	}
}
