// Package prompt composes the system prompt that carries repository context
// into the first user turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/makkara/makkara/internal/pkg/llm"
	"github.com/makkara/makkara/internal/pkg/repocontext"
)

const (
	MinHarshness     = 0
	MaxHarshness     = 10
	DefaultHarshness = 5

	// charsPerToken and budgetShare turn a model token limit into a character
	// budget that leaves room for the conversation and the answer.
	charsPerToken = 4
	budgetShare   = 0.75
)

const formattingDirectives = `IMPORTANT FORMATTING INSTRUCTIONS:
- Use proper markdown formatting in your responses
- Use headers (##, ###) to organize sections
- Use bullet points (-) or numbered lists (1.) for lists
- Use **bold** for important terms and concepts
- Use ` + "`code`" + ` for inline code references
- Use code blocks with language specification for code examples
- Use > for important notes or quotes
- Structure your responses clearly with proper spacing
- When explaining code, break it down into logical sections
- Use tables when comparing features or listing information systematically`

const closingLine = "Please help the user understand this repository, its structure, functionality, and answer any questions they have about the code. Be concise but informative."

// Input is everything the assembler needs.
type Input struct {
	Harshness int
	Metadata  repocontext.Metadata
	Files     []repocontext.File
	// MaxChars bounds the assembled prompt; zero disables the guard.
	MaxChars int
}

// ClampHarshness returns the default for nil and clamps into [0,10].
func ClampHarshness(h *int) int {
	if h == nil {
		return DefaultHarshness
	}
	switch {
	case *h < MinHarshness:
		return MinHarshness
	case *h > MaxHarshness:
		return MaxHarshness
	default:
		return *h
	}
}

// BudgetFor converts a model's token limit into a prompt character budget.
func BudgetFor(maxTokens int) int {
	if maxTokens <= 0 {
		return 0
	}
	return int(float64(maxTokens*charsPerToken) * budgetShare)
}

// Persona is the identity line for the given harshness level.
func Persona(harshness int) string {
	var tone string
	switch {
	case harshness <= 2:
		tone = "Be gentle and encouraging; point out problems kindly and lead with what the code does well."
	case harshness <= 6:
		tone = "Be balanced and candid; acknowledge strengths and name weaknesses plainly."
	case harshness <= 8:
		tone = "Be blunt; focus on flaws, risky patterns and questionable decisions without softening them."
	default:
		tone = "Be brutally honest and unsparing, like a seasoned reviewer who has seen every mistake before; still stay accurate and constructive."
	}
	return fmt.Sprintf("You are an AI assistant that helps users understand and work with GitHub repositories. Critique level: %d/10. %s", harshness, tone)
}

// Assemble builds the system prompt block.
func Assemble(in Input) string {
	var head strings.Builder
	head.WriteString(Persona(in.Harshness))
	head.WriteString("\n\n")
	head.WriteString(summary(in.Metadata))
	head.WriteString("\n\nRepository Files:\n")

	tail := "\n\n" + formattingDirectives + "\n\n" + closingLine

	blocks := make([]string, 0, len(in.Files))
	used := head.Len() + len(tail)
	omitted := 0
	for i, f := range in.Files {
		block := fmt.Sprintf("File: %s\n%s\n---", f.Path, f.Content)
		cost := len(block) + 1
		if in.MaxChars > 0 && used+cost > in.MaxChars {
			omitted = len(in.Files) - i
			break
		}
		blocks = append(blocks, block)
		used += cost
	}

	var out strings.Builder
	out.WriteString(head.String())
	out.WriteString(strings.Join(blocks, "\n"))
	if omitted > 0 {
		fmt.Fprintf(&out, "\n(%d more file(s) omitted to fit the model context window)", omitted)
	}
	out.WriteString(tail)
	return out.String()
}

func summary(m repocontext.Metadata) string {
	description := m.Description
	if description == "" {
		description = "No description"
	}
	language := m.Language
	if language == "" {
		language = "Not specified"
	}
	return fmt.Sprintf(`Repository Information:
- Name: %s
- Description: %s
- Primary Language: %s
- Stars: %d
- Forks: %d
- URL: %s`, m.Name, description, language, m.Stars, m.Forks, m.URL)
}

// ComposeFirstMessage returns a copy of msgs whose first turn carries the
// system prompt. msgs itself is never modified.
func ComposeFirstMessage(system string, msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	if len(out) > 0 {
		out[0].Content = system + "\n\nUser question: " + out[0].Content
	}
	return out
}
