package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/config"
	"github.com/adrianhensler/botterverse/internal/director"
	"github.com/adrianhensler/botterverse/internal/integrations"
	"github.com/adrianhensler/botterverse/internal/llm"
	"github.com/adrianhensler/botterverse/internal/store"
	"github.com/adrianhensler/botterverse/pkg/logging"
)

const (
	recentPostWindow = 50
	dmThreadContext  = 10
	memoriesPerPrune = 200
	dmMemorySalience = 0.6
	headlinesPerPoll = 3
)

// Jobs holds the collaborators the periodic jobs need. Each job's private
// bookkeeping (processed DMs, seen events) is only touched by that job.
type Jobs struct {
	Director *director.Director
	State    *director.SchedulerState
	Store    store.Store
	Client   *llm.Client
	News     *integrations.NewsClient
	Weather  *integrations.WeatherClient
	Logger   logging.Logger
	Config   config.Config

	processedDMs map[uuid.UUID]struct{}
	seenEvents   map[string]struct{}
}

// Register wires the standard job set into the scheduler.
func (j *Jobs) Register(s *Scheduler) {
	j.processedDMs = make(map[uuid.UUID]struct{})
	j.seenEvents = make(map[string]struct{})
	s.Add("director_tick", j.Config.DirectorTickInterval, j.DirectorTick)
	s.Add("dm_reply_tick", j.Config.DMTickInterval, j.DMReplyTick)
	s.Add("like_tick", j.Config.LikeTickInterval, j.LikeTick)
	s.Add("integration_poll", j.Config.PollInterval, j.PollIntegrations)
}

// DirectorTick runs one planning pass and persists the results.
func (j *Jobs) DirectorTick(ctx context.Context) {
	if j.State.Paused() {
		return
	}
	created, err := RunDirectorTick(ctx, j.Director, j.Store, j.Client)
	if err != nil {
		j.Logger.WithError(err).Warn("Director tick failed")
		return
	}
	if len(created) > 0 {
		j.Logger.WithFields(logging.Fields{"created": len(created)}).Info("Director tick planned posts")
	}
	for _, p := range j.Director.Personas() {
		if err := j.Store.PruneMemories(ctx, p.ID(), memoriesPerPrune); err != nil {
			j.Logger.WithError(err).Warn("Memory prune failed")
		}
	}
}

// RunDirectorTick is the shared tick body: plan, persist, audit. The HTTP
// tick endpoint uses it too.
func RunDirectorTick(ctx context.Context, d *director.Director, st store.Store, client *llm.Client) ([]store.Post, error) {
	recent, err := st.ListPosts(ctx, recentPostWindow, nil)
	if err != nil {
		return nil, err
	}
	planned := d.NextPosts(ctx, time.Now().UTC(), recent, st, client)

	created := make([]store.Post, 0, len(planned))
	for _, plan := range planned {
		post, err := st.CreatePost(ctx, plan.Post)
		if err != nil {
			return created, err
		}
		created = append(created, post)
		if plan.Audit != nil {
			plan.Audit.PostID = &post.ID
			if err := st.AddAuditEntry(ctx, *plan.Audit); err != nil {
				return created, err
			}
		}
	}
	return created, nil
}

// DMReplyTick answers the newest unprocessed human message of every
// human-to-bot thread in the persona's voice.
func (j *Jobs) DMReplyTick(ctx context.Context) {
	latest, err := j.Store.LatestDMs(ctx)
	if err != nil {
		j.Logger.WithError(err).Warn("DM tick failed to list threads")
		return
	}
	for _, dm := range latest {
		if _, done := j.processedDMs[dm.ID]; done {
			continue
		}
		j.processedDMs[dm.ID] = struct{}{}

		sender, err := j.Store.GetAuthor(ctx, dm.SenderID)
		if err != nil {
			continue
		}
		recipient, err := j.Store.GetAuthor(ctx, dm.RecipientID)
		if err != nil {
			continue
		}
		if recipient.Type != store.AuthorBot || sender.Type == store.AuthorBot {
			continue
		}
		p, ok := j.Director.PersonaByID(recipient.ID)
		if !ok {
			continue
		}

		thread, err := j.Store.ListDMThread(ctx, dm.SenderID, dm.RecipientID, dmThreadContext)
		if err != nil {
			j.Logger.WithError(err).Warn("DM tick failed to load thread")
			continue
		}
		snippets := make([]string, 0, len(thread))
		for _, message := range thread {
			handle := "unknown"
			if author, err := j.Store.GetAuthor(ctx, message.SenderID); err == nil {
				handle = author.Handle
			}
			snippets = append(snippets, handle+": "+message.Content)
		}
		topic := dm.Content
		if len(thread) > 0 {
			topic = thread[len(thread)-1].Content
		}

		result := j.Client.GeneratePostWithAudit(ctx, p, llm.Context{
			LatestEventTopic:       topic,
			RecentTimelineSnippets: snippets,
			EventContext:           "Direct message thread between " + sender.Handle + " and " + recipient.Handle + ".",
		})
		reply, err := j.Store.CreateDM(ctx, store.DMCreate{
			SenderID:    dm.RecipientID,
			RecipientID: dm.SenderID,
			Content:     result.Output,
		})
		if err != nil {
			j.Logger.WithError(err).Warn("DM tick failed to persist reply")
			continue
		}
		audit := store.AuditEntry{
			ID:           uuid.New(),
			PersonaID:    p.ID(),
			Prompt:       result.Prompt,
			ModelName:    result.ModelName,
			Output:       result.Output,
			UsedFallback: result.UsedFallback,
			Timestamp:    time.Now().UTC(),
			DMID:         &reply.ID,
		}
		if err := j.Store.AddAuditEntry(ctx, audit); err != nil {
			j.Logger.WithError(err).Warn("DM tick failed to persist audit entry")
		}
		if err := j.Store.AddMemoryFromDM(ctx, p.ID(), dm.Content, dmMemorySalience); err != nil {
			j.Logger.WithError(err).Warn("DM tick failed to record memory")
		}
	}
}

// LikeTick has personas like human posts that touch their interests,
// bounded per cycle so affection stays plausible.
func (j *Jobs) LikeTick(ctx context.Context) {
	posts, err := j.Store.ListPosts(ctx, recentPostWindow, nil)
	if err != nil {
		j.Logger.WithError(err).Warn("Like tick failed to list posts")
		return
	}
	liked := 0
	for _, post := range posts {
		if liked >= j.Config.LikesPerTick {
			return
		}
		author, err := j.Store.GetAuthor(ctx, post.AuthorID)
		if err != nil || author.Type != store.AuthorHuman {
			continue
		}
		content := strings.ToLower(post.Content)
		for _, p := range j.Director.Personas() {
			if !interestIn(p.Interests(), content) {
				continue
			}
			already, err := j.Store.HasLiked(ctx, post.ID, p.ID())
			if err != nil || already {
				continue
			}
			if _, err := j.Store.ToggleLike(ctx, post.ID, p.ID()); err != nil {
				j.Logger.WithError(err).Warn("Like tick failed to toggle like")
				continue
			}
			liked++
			if liked >= j.Config.LikesPerTick {
				return
			}
		}
	}
}

// PollIntegrations fetches fresh feed items and registers unseen ones as
// director events.
func (j *Jobs) PollIntegrations(ctx context.Context) {
	var events []integrations.Event
	if j.News != nil && j.News.Configured() {
		headlines, err := j.News.TopHeadlines(ctx, j.Config.NewsCountry, headlinesPerPoll)
		if err != nil {
			j.Logger.WithError(err).Warn("News poll failed")
		} else {
			events = append(events, headlines...)
		}
	}
	if j.Weather != nil && j.Weather.Configured() && j.Config.WeatherLocation != "" {
		observations, err := j.Weather.CurrentAsEvent(ctx, j.Config.WeatherLocation)
		if err != nil {
			j.Logger.WithError(err).Warn("Weather poll failed")
		} else {
			events = append(events, observations...)
		}
	}

	for _, event := range events {
		if _, seen := j.seenEvents[event.ExternalID]; seen {
			continue
		}
		j.seenEvents[event.ExternalID] = struct{}{}
		j.Director.RegisterEvent(director.BotEvent{
			ID:        uuid.New(),
			Topic:     event.Topic,
			Kind:      event.Kind,
			Payload:   event.Payload,
			CreatedAt: event.FetchedAt,
		})
	}
}

func interestIn(interests []string, content string) bool {
	for _, interest := range interests {
		if interest != "" && strings.Contains(content, strings.ToLower(interest)) {
			return true
		}
	}
	return false
}
