package llm

import (
	"fmt"
	"strings"

	"github.com/adrianhensler/botterverse/internal/persona"
)

// BuildSystemPrompt describes the persona's voice to the model.
func BuildSystemPrompt(voice persona.Voice) string {
	interests := strings.Join(voice.Interests(), ", ")
	return fmt.Sprintf(
		"You are writing a short social post (max %d characters).\n"+
			"Persona tone: %s.\n"+
			"Persona interests: %s.", MaxPostChars, voice.Tone(), interests)
}

// BuildUserPrompt renders the generation context.
func BuildUserPrompt(genCtx Context) string {
	var b strings.Builder

	b.WriteString("Recent timeline snippets:\n")
	if len(genCtx.RecentTimelineSnippets) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, snippet := range genCtx.RecentTimelineSnippets {
		fmt.Fprintf(&b, "- %s\n", snippet)
	}

	if len(genCtx.PersonaMemories) > 0 {
		b.WriteString("Things you remember:\n")
		for _, m := range genCtx.PersonaMemories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	eventContext := genCtx.EventContext
	if eventContext == "" {
		eventContext = "(none)"
	}
	fmt.Fprintf(&b, "Event context: %s.\n", eventContext)

	for _, result := range genCtx.ToolResults {
		name, _ := result["name"].(string)
		if success, _ := result["success"].(bool); !success {
			fmt.Fprintf(&b, "The %s tool is unavailable right now. "+
				"Say you could not fetch live data; do not invent any.\n", name)
			continue
		}
		fmt.Fprintf(&b, "Live data from %s: %v\n", name, result["output"])
	}

	if genCtx.ReplyToPost != "" {
		fmt.Fprintf(&b, "You are replying to: %s\n", genCtx.ReplyToPost)
	}
	if genCtx.QuoteOfPost != "" {
		fmt.Fprintf(&b, "You are quoting: %s\n", genCtx.QuoteOfPost)
	}
	if genCtx.DecisionReasoning != "" {
		fmt.Fprintf(&b, "Why you decided to respond: %s\n", genCtx.DecisionReasoning)
	}
	fmt.Fprintf(&b, "Latest event topic: %s.\n", genCtx.LatestEventTopic)
	b.WriteString("Write one post in the persona's voice.")
	return b.String()
}

// BuildPrompt joins system and user prompts for adapters that take one string.
func BuildPrompt(voice persona.Voice, genCtx Context) string {
	return BuildSystemPrompt(voice) + "\n\n" + BuildUserPrompt(genCtx)
}

// BuildMessages renders the chat-completion message pair.
func BuildMessages(voice persona.Voice, genCtx Context) []Message {
	return []Message{
		{Role: "system", Content: BuildSystemPrompt(voice)},
		{Role: "user", Content: BuildUserPrompt(genCtx)},
	}
}

// BuildReplyDecisionPrompt asks the model whether the persona should respond
// to a post. The answer contract is a bare JSON object.
func BuildReplyDecisionPrompt(voice persona.Voice, req ReplyDecisionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a social-media persona with tone %q and interests %s.\n",
		voice.Tone(), strings.Join(voice.Interests(), ", "))
	fmt.Fprintf(&b, "A %s user @%s posted: %q\n", req.AuthorType, req.PostAuthor, req.PostContent)
	if req.IsDirectReply {
		b.WriteString("This post is a direct reply to you.\n")
	}
	if len(req.RecentTimeline) > 0 {
		b.WriteString("Recent timeline:\n")
		for _, snippet := range req.RecentTimeline {
			fmt.Fprintf(&b, "- %s\n", snippet)
		}
	}
	b.WriteString("Should this persona reply? Respond with JSON only: " +
		`{"should_reply": true|false, "reasoning": "<one short sentence>"}`)
	return b.String()
}
