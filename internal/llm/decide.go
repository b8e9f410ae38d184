package llm

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/adrianhensler/botterverse/internal/persona"
)

// Heuristic reply probabilities for the offline decision policy. They are
// deliberately stingier toward bot authors than the LLM-backed policy, as
// a cost and spiral control.
const (
	heuristicHumanReplyChance = 0.35
	heuristicBotReplyChance   = 0.15
	heuristicBotDirectChance  = 0.35
	decisionTimeout           = 8 * time.Second
)

// ReplyDecisionRequest describes a candidate post a persona may respond to.
type ReplyDecisionRequest struct {
	PostContent    string
	PostAuthor     string
	AuthorType     string // "human" or "bot"
	IsDirectReply  bool
	RecentTimeline []string
}

type replyDecisionPayload struct {
	ShouldReply bool   `json:"should_reply"`
	Reasoning   string `json:"reasoning"`
}

var (
	decisionRngMu sync.Mutex
	decisionRng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// SeedDecisionRNG fixes the heuristic decision source, for tests.
func SeedDecisionRNG(seed int64) {
	decisionRngMu.Lock()
	defer decisionRngMu.Unlock()
	decisionRng = rand.New(rand.NewSource(seed))
}

func decisionRoll() float64 {
	decisionRngMu.Lock()
	defer decisionRngMu.Unlock()
	return decisionRng.Float64()
}

// DecideReply returns whether the persona should respond to the post and a
// one-line reasoning. Errors never escape: any failure is a "no".
func (c *Client) DecideReply(ctx context.Context, voice persona.Voice, req ReplyDecisionRequest) (bool, string) {
	route := c.router.EconomyRoute()
	if route.Provider == LocalProviderName {
		return heuristicReplyDecision(voice, req)
	}

	ctx, cancel := context.WithTimeout(ctx, decisionTimeout)
	defer cancel()

	prompt := BuildReplyDecisionPrompt(voice, req)
	adapter := c.router.AdapterFor(route.Provider)
	response, _, err := adapter.Generate(ctx, voice, Context{LatestEventTopic: req.PostContent}, prompt, route.Model)
	if err != nil {
		c.logger.WithError(err).Warn("Reply decision call failed, defaulting to no reply")
		return false, "decision call failed; defaulting to no reply"
	}

	var payload replyDecisionPayload
	if err := json.Unmarshal([]byte(ExtractJSONBlock(response)), &payload); err != nil {
		c.logger.WithError(err).Warn("Reply decision response unparsable, defaulting to no reply")
		return false, "decision response unparsable; defaulting to no reply"
	}
	reasoning := strings.TrimSpace(payload.Reasoning)
	if reasoning == "" {
		reasoning = "no reasoning given"
	}
	return payload.ShouldReply, reasoning
}

// heuristicReplyDecision is the offline policy: direct human replies always
// get a response, bot-to-bot direct replies are throttled, everything else
// is a weighted coin flip.
func heuristicReplyDecision(voice persona.Voice, req ReplyDecisionRequest) (bool, string) {
	if req.IsDirectReply {
		if req.AuthorType == "bot" {
			if decisionRoll() < heuristicBotDirectChance {
				return true, "continuing a bot conversation that addressed me"
			}
			return false, "letting a bot-to-bot thread cool off"
		}
		return true, "a human replied to me directly"
	}

	chance := heuristicHumanReplyChance
	if req.AuthorType == "bot" {
		chance = heuristicBotReplyChance
	}
	if matched, keyword := interestMatch(voice, req.PostContent); matched {
		if decisionRoll() < chance*2 {
			return true, "the post touches my interest in " + keyword
		}
		return false, "on topic but choosing to stay quiet this time"
	}
	if decisionRoll() < chance {
		return true, "joining the conversation"
	}
	return false, "nothing here calls for my voice"
}

func interestMatch(voice persona.Voice, content string) (bool, string) {
	lowered := strings.ToLower(content)
	for _, interest := range voice.Interests() {
		if interest != "" && strings.Contains(lowered, strings.ToLower(interest)) {
			return true, interest
		}
	}
	return false, ""
}

// ExtractJSONBlock strips markdown code fences so permissively formatted
// model responses still parse.
func ExtractJSONBlock(response string) string {
	content := strings.TrimSpace(response)
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
		return strings.TrimSpace(content)
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
		return strings.TrimSpace(content)
	}
	return content
}
