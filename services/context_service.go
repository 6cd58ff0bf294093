package services

import (
	"fmt"
	"strings"

	"github.com/Kondrashov16/arkiv/models"
)

const assistantInstruction = `You are a helpful AI assistant. Your task is to answer the user's query based solely on the provided context from documents. Do not use any external knowledge. If the answer cannot be found within the provided context, clearly state that. When formulating your answer, be concise and directly address the query.`

const assistantInstructionNoContext = `You are a helpful AI assistant. No document context is available for this query; answer from general knowledge and say so when you are unsure.`

// ContextAssembler turns a query, its retrieved sources and the prior
// conversation into the message payload for the LLM gateway.
type ContextAssembler struct {
	// maxChars bounds the total content length of the assembled payload.
	// Zero means unbounded. When the bound is exceeded, the oldest history
	// messages are dropped first; the system message and the query itself
	// are never dropped.
	maxChars int
}

// NewContextAssembler creates an assembler with the given payload bound
// (0 disables bounding).
func NewContextAssembler(maxChars int) *ContextAssembler {
	return &ContextAssembler{maxChars: maxChars}
}

// Assemble builds: system message (instruction + grounding context), prior
// messages in their original order with roles preserved, then the query as
// the final user message. chunks carry the full retrieved text; truncation
// for display is the caller's concern, the model sees everything.
func (a *ContextAssembler) Assemble(query string, chunks []models.Chunk, history []models.ChatMessage) []models.ChatMessage {
	system := models.ChatMessage{Role: models.RoleSystem, Content: a.renderSystem(chunks)}
	final := models.ChatMessage{Role: models.RoleUser, Content: query}

	kept := history
	if a.maxChars > 0 {
		fixed := len(system.Content) + len(final.Content)
		for len(kept) > 0 && fixed+historyChars(kept) > a.maxChars {
			kept = kept[1:]
		}
	}

	messages := make([]models.ChatMessage, 0, len(kept)+2)
	messages = append(messages, system)
	messages = append(messages, kept...)
	messages = append(messages, final)
	return messages
}

func (a *ContextAssembler) renderSystem(chunks []models.Chunk) string {
	if len(chunks) == 0 {
		return assistantInstructionNoContext
	}

	var sb strings.Builder
	sb.WriteString(assistantInstruction)
	sb.WriteString("\n\n--- Context from Documents ---\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "Source %d:\n", i+1)
		fmt.Fprintf(&sb, "  Document: %s\n", chunk.DocumentName)
		fmt.Fprintf(&sb, "  Chunk ID: %d\n", chunk.ChunkID)
		fmt.Fprintf(&sb, "  Text: %q\n", chunk.Text)
		sb.WriteString("---\n")
	}
	return sb.String()
}

func historyChars(history []models.ChatMessage) int {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	return total
}
