package director

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/llm"
	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/internal/store"
	"github.com/adrianhensler/botterverse/internal/tooling"
)

// Candidate priorities: direct replies beat human posts beat bot posts.
const (
	priorityDirect = 0
	priorityHuman  = 1
	priorityBot    = 2
)

const (
	considerationSalience = 0.5
	reactionSalience      = 0.8
)

type replyCandidate struct {
	post     store.Post
	author   store.Author
	priority int
}

// NextPosts plans this tick's actions, one pass over the personas in
// registration order. A due event reaction wins outright and bypasses the
// cadence gate; otherwise the persona must clear its jittered cadence
// window, then tries a reply before falling back to a fresh post. Planning
// never fails: generation trouble degrades to the template inside the
// generation boundary.
func (d *Director) NextPosts(ctx context.Context, now time.Time, recentPosts []store.Post, st store.Store, client *llm.Client) []PlannedPost {
	ticksTotal.Inc()
	due := d.takeDueReactions(now)
	responders := make(map[uuid.UUID]struct{})

	var planned []PlannedPost
	for _, p := range d.personas {
		if reaction, ok := due[p.ID()]; ok {
			planned = append(planned, d.reactionPost(ctx, p, reaction, now, recentPosts, st, client))
			d.advanceLastPosted(p.ID(), now)
			continue
		}
		if !d.cadenceReady(p, now) {
			continue
		}
		if reply := d.attemptReply(ctx, p, now, recentPosts, st, client, responders); reply != nil {
			planned = append(planned, *reply)
			d.advanceLastPosted(p.ID(), now)
			continue
		}
		planned = append(planned, d.newPost(ctx, p, now, recentPosts, st, client))
		d.advanceLastPosted(p.ID(), now)
	}
	return planned
}

func (d *Director) reactionPost(ctx context.Context, p persona.Persona, reaction ScheduledReaction, now time.Time, recentPosts []store.Post, st store.Store, client *llm.Client) PlannedPost {
	event := reaction.Event
	if st != nil {
		if err := st.AddMemoryFromEvent(ctx, p.ID(), event.Topic, event.Kind, reactionSalience); err != nil && d.logger != nil {
			d.logger.WithError(err).Warn("Failed to record event memory")
		}
	}

	genCtx := llm.Context{
		LatestEventTopic:       event.Topic,
		RecentTimelineSnippets: timelineSnippets(recentPosts),
		EventContext:           fmt.Sprintf("A %s event just happened: %s", event.Kind, event.Topic),
		PersonaMemories:        d.personaMemories(ctx, st, p.ID(), now),
	}
	content, audit := d.generate(ctx, p, genCtx, client)
	plannedPostsTotal.WithLabelValues(KindReaction).Inc()
	return PlannedPost{
		Post:  store.PostCreate{AuthorID: p.ID(), Content: content},
		Kind:  KindReaction,
		Audit: audit,
	}
}

// attemptReply walks the priority-sorted candidates and returns the first
// one the decision boundary says yes to. Human targets are claimed in the
// tick-local responders set and checked against persisted replies so at
// most one bot answers a human post.
func (d *Director) attemptReply(ctx context.Context, p persona.Persona, now time.Time, recentPosts []store.Post, st store.Store, client *llm.Client, responders map[uuid.UUID]struct{}) *PlannedPost {
	if client == nil {
		return nil
	}
	for _, candidate := range d.eligibleReplyTargets(ctx, p, recentPosts, st) {
		if candidate.author.Type == store.AuthorHuman {
			if _, claimed := responders[candidate.post.ID]; claimed {
				continue
			}
			if d.hasPersistedBotReply(ctx, st, candidate.post.ID) {
				continue
			}
		}

		shouldReply, reasoning := client.DecideReply(ctx, p, llm.ReplyDecisionRequest{
			PostContent:    candidate.post.Content,
			PostAuthor:     candidate.author.Handle,
			AuthorType:     string(candidate.author.Type),
			IsDirectReply:  candidate.priority == priorityDirect,
			RecentTimeline: timelineSnippets(recentPosts),
		})
		d.recordConsideration(ctx, st, p.ID(), candidate.post)
		if !shouldReply {
			replyDecisionsTotal.WithLabelValues("no").Inc()
			continue
		}
		replyDecisionsTotal.WithLabelValues("yes").Inc()

		d.markReplied(p.ID(), candidate.post.ID)
		if candidate.author.Type == store.AuthorHuman {
			responders[candidate.post.ID] = struct{}{}
		}

		quote := d.roll() < d.quoteChance
		genCtx := llm.Context{
			LatestEventTopic:       d.LatestTopic(),
			RecentTimelineSnippets: timelineSnippets(recentPosts),
			PersonaMemories:        d.personaMemories(ctx, st, p.ID(), now),
			DecisionReasoning:      reasoning,
		}
		kind := KindReply
		payload := store.PostCreate{AuthorID: p.ID()}
		if quote {
			kind = KindQuote
			payload.QuoteOf = &candidate.post.ID
			genCtx.QuoteOfPost = candidate.post.Content
		} else {
			payload.ReplyTo = &candidate.post.ID
			genCtx.ReplyToPost = candidate.post.Content
		}

		content, audit := d.generate(ctx, p, genCtx, client)
		payload.Content = content
		plannedPostsTotal.WithLabelValues(kind).Inc()
		return &PlannedPost{Post: payload, Kind: kind, Audit: audit}
	}
	return nil
}

// eligibleReplyTargets filters recentPosts down to reply candidates:
// not the persona's own posts, not ones already answered, all human posts,
// bot posts only on an interest match. Direct replies to this persona rank
// first, then humans, then bots, stable within each class.
func (d *Director) eligibleReplyTargets(ctx context.Context, p persona.Persona, recentPosts []store.Post, st store.Store) []replyCandidate {
	if st == nil {
		return nil
	}
	var candidates []replyCandidate
	for _, post := range recentPosts {
		if post.AuthorID == p.ID() || d.hasReplied(p.ID(), post.ID) {
			continue
		}
		author, err := st.GetAuthor(ctx, post.AuthorID)
		if err != nil {
			continue
		}

		direct := false
		if post.ReplyTo != nil {
			if parent, err := st.GetPost(ctx, *post.ReplyTo); err == nil && parent.AuthorID == p.ID() {
				direct = true
			}
		}

		switch {
		case direct:
			candidates = append(candidates, replyCandidate{post: post, author: author, priority: priorityDirect})
		case author.Type == store.AuthorHuman:
			candidates = append(candidates, replyCandidate{post: post, author: author, priority: priorityHuman})
		case interestMatches(p, post.Content):
			candidates = append(candidates, replyCandidate{post: post, author: author, priority: priorityBot})
		}
	}

	// Stable insertion sort keeps source order within a priority class.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].priority < candidates[j-1].priority; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	return candidates
}

func (d *Director) newPost(ctx context.Context, p persona.Persona, now time.Time, recentPosts []store.Post, st store.Store, client *llm.Client) PlannedPost {
	genCtx := llm.Context{
		LatestEventTopic:       d.LatestTopic(),
		RecentTimelineSnippets: timelineSnippets(recentPosts),
		PersonaMemories:        d.personaMemories(ctx, st, p.ID(), now),
	}
	content, audit := d.generate(ctx, p, genCtx, client)
	plannedPostsTotal.WithLabelValues(KindPost).Inc()
	return PlannedPost{
		Post:  store.PostCreate{AuthorID: p.ID(), Content: content},
		Kind:  KindPost,
		Audit: audit,
	}
}

// PlanDirectMentions answers a human post that @-mentions persona handles.
// Mentioned personas always respond; the decision boundary is still asked
// so its reasoning colors the reply. Cadence is bypassed entirely.
func (d *Director) PlanDirectMentions(ctx context.Context, target store.Post, recentPosts []store.Post, st store.Store, client *llm.Client) []PlannedPost {
	content := strings.ToLower(target.Content)
	now := time.Now().UTC()

	var planned []PlannedPost
	for _, p := range d.personas {
		if !strings.Contains(content, "@"+strings.ToLower(p.Handle())) {
			continue
		}
		if p.ID() == target.AuthorID || d.hasReplied(p.ID(), target.ID) {
			continue
		}
		if d.hasPersistedReplyBy(ctx, st, target.ID, p.ID()) {
			continue
		}

		reasoning := "mentioned directly"
		if client != nil {
			_, reasoning = client.DecideReply(ctx, p, llm.ReplyDecisionRequest{
				PostContent:    target.Content,
				PostAuthor:     d.authorHandle(ctx, st, target.AuthorID),
				AuthorType:     string(store.AuthorHuman),
				IsDirectReply:  true,
				RecentTimeline: timelineSnippets(recentPosts),
			})
		}
		d.recordConsideration(ctx, st, p.ID(), target)
		d.markReplied(p.ID(), target.ID)

		genCtx := llm.Context{
			LatestEventTopic:       d.LatestTopic(),
			RecentTimelineSnippets: timelineSnippets(recentPosts),
			PersonaMemories:        d.personaMemories(ctx, st, p.ID(), now),
			ReplyToPost:            target.Content,
			DecisionReasoning:      reasoning,
		}
		reply, audit := d.generate(ctx, p, genCtx, client)
		plannedPostsTotal.WithLabelValues(KindReply).Inc()
		planned = append(planned, PlannedPost{
			Post:  store.PostCreate{AuthorID: p.ID(), Content: reply, ReplyTo: &target.ID},
			Kind:  KindReply,
			Audit: audit,
		})
	}
	return planned
}

// PlanDirectReplyToBot handles a human replying to a bot's post. Unlike
// mentions, the persona only answers on an explicit yes.
func (d *Director) PlanDirectReplyToBot(ctx context.Context, p persona.Persona, target store.Post, recentPosts []store.Post, st store.Store, client *llm.Client) *PlannedPost {
	if client == nil {
		return nil
	}
	if p.ID() == target.AuthorID || d.hasReplied(p.ID(), target.ID) {
		return nil
	}
	if d.hasPersistedReplyBy(ctx, st, target.ID, p.ID()) {
		return nil
	}

	shouldReply, reasoning := client.DecideReply(ctx, p, llm.ReplyDecisionRequest{
		PostContent:    target.Content,
		PostAuthor:     d.authorHandle(ctx, st, target.AuthorID),
		AuthorType:     string(store.AuthorHuman),
		IsDirectReply:  true,
		RecentTimeline: timelineSnippets(recentPosts),
	})
	d.recordConsideration(ctx, st, p.ID(), target)
	if !shouldReply {
		replyDecisionsTotal.WithLabelValues("no").Inc()
		return nil
	}
	replyDecisionsTotal.WithLabelValues("yes").Inc()
	d.markReplied(p.ID(), target.ID)

	genCtx := llm.Context{
		LatestEventTopic:       d.LatestTopic(),
		RecentTimelineSnippets: timelineSnippets(recentPosts),
		PersonaMemories:        d.personaMemories(ctx, st, p.ID(), time.Now().UTC()),
		ReplyToPost:            target.Content,
		DecisionReasoning:      reasoning,
	}
	content, audit := d.generate(ctx, p, genCtx, client)
	plannedPostsTotal.WithLabelValues(KindReply).Inc()
	return &PlannedPost{
		Post:  store.PostCreate{AuthorID: p.ID(), Content: content, ReplyTo: &target.ID},
		Kind:  KindReply,
		Audit: audit,
	}
}

// generate runs tool routing, the degradation chain and the grounding pass,
// and packages the audit record. It never returns empty content.
func (d *Director) generate(ctx context.Context, p persona.Persona, genCtx llm.Context, client *llm.Client) (string, *store.AuditEntry) {
	if client == nil {
		return llm.TruncateToLimit(llm.TemplateFallback(p, genCtx)), nil
	}
	if d.tools != nil {
		genCtx.ToolResults = d.tools.RouteAndExecute(ctx, p, genCtx, client.Router())
	}

	result := client.GeneratePostWithAudit(ctx, p, genCtx)
	switch result.Failure {
	case llm.FailurePrimary:
		generationFallbacksTotal.WithLabelValues("provider").Inc()
	case llm.FailureFallback:
		generationFallbacksTotal.WithLabelValues("template").Inc()
	}

	// URLs are only trustworthy when a tool vouched for them; with no tool
	// results the allowed set is empty and every link is stripped.
	output := tooling.StripUnverifiedURLs(result.Output, genCtx.ToolResults)
	if len(genCtx.ToolResults) > 0 {
		output = tooling.AppendToolBlocks(output, genCtx.ToolResults)
		output = llm.TruncateToLimit(output)
	}

	return output, &store.AuditEntry{
		ID:           uuid.New(),
		PersonaID:    p.ID(),
		Prompt:       result.Prompt,
		ModelName:    result.ModelName,
		Output:       output,
		UsedFallback: result.UsedFallback,
		Timestamp:    time.Now().UTC(),
	}
}

// hasPersistedBotReply reports whether any bot already replied to or quoted
// the post, per the store.
func (d *Director) hasPersistedBotReply(ctx context.Context, st store.Store, postID uuid.UUID) bool {
	if st == nil {
		return false
	}
	replies, err := st.RepliesToPost(ctx, postID)
	if err != nil {
		if d.logger != nil {
			d.logger.WithError(err).Warn("Failed to check persisted replies")
		}
		return false
	}
	for _, reply := range replies {
		if d.isPersona(reply.AuthorID) {
			return true
		}
	}
	return false
}

func (d *Director) hasPersistedReplyBy(ctx context.Context, st store.Store, postID, personaID uuid.UUID) bool {
	if st == nil {
		return false
	}
	replies, err := st.RepliesToPost(ctx, postID)
	if err != nil {
		return false
	}
	for _, reply := range replies {
		if reply.AuthorID == personaID {
			return true
		}
	}
	return false
}

func (d *Director) recordConsideration(ctx context.Context, st store.Store, personaID uuid.UUID, post store.Post) {
	if st == nil {
		return
	}
	if err := st.AddMemoryFromPost(ctx, personaID, post.ID, post.Content, considerationSalience); err != nil && d.logger != nil {
		d.logger.WithError(err).Warn("Failed to record reply consideration")
	}
}

func (d *Director) personaMemories(ctx context.Context, st store.Store, personaID uuid.UUID, now time.Time) []string {
	if st == nil {
		return nil
	}
	entries, err := st.ListMemories(ctx, personaID, memoryFetchLimit)
	if err != nil {
		if d.logger != nil {
			d.logger.WithError(err).Warn("Failed to load persona memories")
		}
		return nil
	}
	top := d.ranker.TopK(entries, now, memoryContextSize)
	out := make([]string, 0, len(top))
	for _, entry := range top {
		out = append(out, entry.Content)
	}
	return out
}

func (d *Director) authorHandle(ctx context.Context, st store.Store, id uuid.UUID) string {
	if st == nil {
		return "unknown"
	}
	author, err := st.GetAuthor(ctx, id)
	if err != nil {
		return "unknown"
	}
	return author.Handle
}

func interestMatches(p persona.Persona, content string) bool {
	lowered := strings.ToLower(content)
	for _, interest := range p.Interests() {
		if interest != "" && strings.Contains(lowered, strings.ToLower(interest)) {
			return true
		}
	}
	return false
}

func timelineSnippets(posts []store.Post) []string {
	snippets := make([]string, 0, timelineSnippetSize)
	for _, post := range posts {
		if len(snippets) == timelineSnippetSize {
			break
		}
		content := post.Content
		if runes := []rune(content); len(runes) > 80 {
			content = string(runes[:80])
		}
		snippets = append(snippets, content)
	}
	return snippets
}
