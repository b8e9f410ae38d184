package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/adrianhensler/botterverse/internal/memory"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS authors (
	id TEXT PRIMARY KEY,
	handle TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL REFERENCES authors(id),
	content TEXT NOT NULL,
	reply_to TEXT,
	quote_of TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_reply_to ON posts(reply_to);
CREATE INDEX IF NOT EXISTS idx_posts_quote_of ON posts(quote_of);
CREATE TABLE IF NOT EXISTS dms (
	id TEXT PRIMARY KEY,
	thread_key TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dms_thread ON dms(thread_key, created_at);
CREATE TABLE IF NOT EXISTS likes (
	post_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	PRIMARY KEY (post_id, author_id)
);
CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	persona_id TEXT NOT NULL,
	prompt TEXT NOT NULL,
	model_name TEXT NOT NULL,
	output TEXT NOT NULL,
	used_fallback INTEGER NOT NULL DEFAULT 0,
	post_id TEXT,
	dm_id TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	persona_id TEXT NOT NULL,
	content TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '',
	salience REAL NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_persona ON memories(persona_id, created_at DESC);
`

// SQLiteStore persists the simulation state in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite tolerates a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewWithDB wraps an existing database handle. The schema is assumed applied.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) AddAuthor(ctx context.Context, author Author) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authors (id, handle, display_name, type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name
	`, author.ID.String(), author.Handle, author.DisplayName, string(author.Type))
	if err != nil {
		return fmt.Errorf("insert author: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAuthor(ctx context.Context, id uuid.UUID) (Author, error) {
	var author Author
	var rawID, rawType string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, type FROM authors WHERE id = ?
	`, id.String()).Scan(&rawID, &author.Handle, &author.DisplayName, &rawType)
	if errors.Is(err, sql.ErrNoRows) {
		return Author{}, ErrNotFound
	}
	if err != nil {
		return Author{}, fmt.Errorf("get author: %w", err)
	}
	author.ID, err = uuid.Parse(rawID)
	if err != nil {
		return Author{}, fmt.Errorf("parse author id: %w", err)
	}
	author.Type = AuthorType(rawType)
	return author, nil
}

func (s *SQLiteStore) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, handle, display_name, type FROM authors ORDER BY handle
	`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var author Author
		var rawID, rawType string
		if err := rows.Scan(&rawID, &author.Handle, &author.DisplayName, &rawType); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		author.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse author id: %w", err)
		}
		author.Type = AuthorType(rawType)
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

func (s *SQLiteStore) CreatePost(ctx context.Context, payload PostCreate) (Post, error) {
	if strings.TrimSpace(payload.Content) == "" {
		return Post{}, errors.New("post content is required")
	}
	post := Post{
		ID:        uuid.New(),
		AuthorID:  payload.AuthorID,
		Content:   payload.Content,
		ReplyTo:   payload.ReplyTo,
		QuoteOf:   payload.QuoteOf,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, content, reply_to, quote_of, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, post.ID.String(), post.AuthorID.String(), post.Content,
		uuidOrNil(post.ReplyTo), uuidOrNil(post.QuoteOf), post.CreatedAt)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

func (s *SQLiteStore) GetPost(ctx context.Context, id uuid.UUID) (Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, content, reply_to, quote_of, created_at
		FROM posts WHERE id = ?
	`, id.String())
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return post, err
}

func (s *SQLiteStore) RepliesToPost(ctx context.Context, id uuid.UUID) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, content, reply_to, quote_of, created_at
		FROM posts WHERE reply_to = ? OR quote_of = ?
		ORDER BY created_at
	`, id.String(), id.String())
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (s *SQLiteStore) ListPosts(ctx context.Context, limit int, authorID *uuid.UUID) ([]Post, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, author_id, content, reply_to, quote_of, created_at
		FROM posts`
	args := []any{}
	if authorID != nil {
		query += ` WHERE author_id = ?`
		args = append(args, authorID.String())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (s *SQLiteStore) CreateDM(ctx context.Context, payload DMCreate) (DM, error) {
	if strings.TrimSpace(payload.Content) == "" {
		return DM{}, errors.New("dm content is required")
	}
	dm := DM{
		ID:          uuid.New(),
		SenderID:    payload.SenderID,
		RecipientID: payload.RecipientID,
		Content:     payload.Content,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dms (id, thread_key, sender_id, recipient_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dm.ID.String(), threadKey(dm.SenderID, dm.RecipientID),
		dm.SenderID.String(), dm.RecipientID.String(), dm.Content, dm.CreatedAt)
	if err != nil {
		return DM{}, fmt.Errorf("insert dm: %w", err)
	}
	return dm, nil
}

func (s *SQLiteStore) ListDMThread(ctx context.Context, userA, userB uuid.UUID, limit int) ([]DM, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at
		FROM dms WHERE thread_key = ?
		ORDER BY created_at DESC LIMIT ?
	`, threadKey(userA, userB), limit)
	if err != nil {
		return nil, fmt.Errorf("list dm thread: %w", err)
	}
	defer rows.Close()

	messages, err := collectDMs(rows)
	if err != nil {
		return nil, err
	}
	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) LatestDMs(ctx context.Context) ([]DM, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at FROM dms
		WHERE id IN (
			SELECT id FROM dms AS inner_dms
			WHERE created_at = (
				SELECT MAX(created_at) FROM dms WHERE thread_key = inner_dms.thread_key
			)
		)
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list latest dms: %w", err)
	}
	defer rows.Close()
	return collectDMs(rows)
}

func (s *SQLiteStore) ToggleLike(ctx context.Context, postID, authorID uuid.UUID) (int, error) {
	liked, err := s.HasLiked(ctx, postID, authorID)
	if err != nil {
		return 0, err
	}
	if liked {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM likes WHERE post_id = ? AND author_id = ?`,
			postID.String(), authorID.String())
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO likes (post_id, author_id) VALUES (?, ?)`,
			postID.String(), authorID.String())
	}
	if err != nil {
		return 0, fmt.Errorf("toggle like: %w", err)
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) HasLiked(ctx context.Context, postID, authorID uuid.UUID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM likes WHERE post_id = ? AND author_id = ?`,
		postID.String(), authorID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) AddAuditEntry(ctx context.Context, entry AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, persona_id, prompt, model_name, output, used_fallback, post_id, dm_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID.String(), entry.PersonaID.String(), entry.Prompt, entry.ModelName,
		entry.Output, entry.UsedFallback, uuidOrNil(entry.PostID), uuidOrNil(entry.DMID), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_id, prompt, model_name, output, used_fallback, post_id, dm_id, created_at
		FROM audit_entries ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var rawID, rawPersona string
		var rawPost, rawDM sql.NullString
		if err := rows.Scan(&rawID, &rawPersona, &entry.Prompt, &entry.ModelName,
			&entry.Output, &entry.UsedFallback, &rawPost, &rawDM, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse audit id: %w", err)
		}
		entry.PersonaID, err = uuid.Parse(rawPersona)
		if err != nil {
			return nil, fmt.Errorf("parse persona id: %w", err)
		}
		if entry.PostID, err = parseNullableUUID(rawPost); err != nil {
			return nil, err
		}
		if entry.DMID, err = parseNullableUUID(rawDM); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) AddMemoryFromEvent(ctx context.Context, personaID uuid.UUID, topic, kind string, salience float64) error {
	return s.addMemory(ctx, memory.Entry{
		PersonaID: personaID,
		Content:   topic,
		Tags:      []string{"event", kind},
		Salience:  salience,
		Source:    memory.SourceEvent,
	})
}

func (s *SQLiteStore) AddMemoryFromPost(ctx context.Context, personaID uuid.UUID, postID uuid.UUID, content string, salience float64) error {
	return s.addMemory(ctx, memory.Entry{
		PersonaID: personaID,
		Content:   content,
		Tags:      []string{"post", postID.String()},
		Salience:  salience,
		Source:    memory.SourcePost,
	})
}

func (s *SQLiteStore) AddMemoryFromDM(ctx context.Context, personaID uuid.UUID, content string, salience float64) error {
	return s.addMemory(ctx, memory.Entry{
		PersonaID: personaID,
		Content:   content,
		Tags:      []string{"dm"},
		Salience:  salience,
		Source:    memory.SourceDM,
	})
}

func (s *SQLiteStore) addMemory(ctx context.Context, entry memory.Entry) error {
	if entry.Salience < 0 {
		entry.Salience = 0
	}
	if entry.Salience > 1 {
		entry.Salience = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, persona_id, content, tags, salience, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), entry.PersonaID.String(), entry.Content,
		strings.Join(entry.Tags, ","), entry.Salience, string(entry.Source), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMemories(ctx context.Context, personaID uuid.UUID, limit int) ([]memory.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_id, content, tags, salience, source, created_at
		FROM memories WHERE persona_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, personaID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		var entry memory.Entry
		var rawID, rawPersona, rawTags, rawSource string
		if err := rows.Scan(&rawID, &rawPersona, &entry.Content, &rawTags,
			&entry.Salience, &rawSource, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		entry.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse memory id: %w", err)
		}
		entry.PersonaID, err = uuid.Parse(rawPersona)
		if err != nil {
			return nil, fmt.Errorf("parse persona id: %w", err)
		}
		if rawTags != "" {
			entry.Tags = strings.Split(rawTags, ",")
		}
		entry.Source = memory.Source(rawSource)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}
	return entries, nil
}

// PruneMemories keeps the newest `keep` memories for a persona and deletes
// the rest.
func (s *SQLiteStore) PruneMemories(ctx context.Context, personaID uuid.UUID, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM memories WHERE persona_id = ? AND id NOT IN (
			SELECT id FROM memories WHERE persona_id = ?
			ORDER BY created_at DESC LIMIT ?
		)
	`, personaID.String(), personaID.String(), keep)
	if err != nil {
		return fmt.Errorf("prune memories: %w", err)
	}
	return nil
}

type postScanner interface {
	Scan(dest ...any) error
}

func scanPost(scanner postScanner) (Post, error) {
	var post Post
	var rawID, rawAuthor string
	var rawReply, rawQuote sql.NullString
	if err := scanner.Scan(&rawID, &rawAuthor, &post.Content, &rawReply, &rawQuote, &post.CreatedAt); err != nil {
		return Post{}, err
	}
	var err error
	post.ID, err = uuid.Parse(rawID)
	if err != nil {
		return Post{}, fmt.Errorf("parse post id: %w", err)
	}
	post.AuthorID, err = uuid.Parse(rawAuthor)
	if err != nil {
		return Post{}, fmt.Errorf("parse author id: %w", err)
	}
	if post.ReplyTo, err = parseNullableUUID(rawReply); err != nil {
		return Post{}, err
	}
	if post.QuoteOf, err = parseNullableUUID(rawQuote); err != nil {
		return Post{}, err
	}
	return post, nil
}

func collectPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func collectDMs(rows *sql.Rows) ([]DM, error) {
	var messages []DM
	for rows.Next() {
		var dm DM
		var rawID, rawSender, rawRecipient string
		if err := rows.Scan(&rawID, &rawSender, &rawRecipient, &dm.Content, &dm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dm: %w", err)
		}
		var err error
		dm.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse dm id: %w", err)
		}
		dm.SenderID, err = uuid.Parse(rawSender)
		if err != nil {
			return nil, fmt.Errorf("parse sender id: %w", err)
		}
		dm.RecipientID, err = uuid.Parse(rawRecipient)
		if err != nil {
			return nil, fmt.Errorf("parse recipient id: %w", err)
		}
		messages = append(messages, dm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dms: %w", err)
	}
	return messages, nil
}

func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullableUUID(raw sql.NullString) (*uuid.UUID, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw.String)
	if err != nil {
		return nil, fmt.Errorf("parse uuid %q: %w", raw.String, err)
	}
	return &id, nil
}

// threadKey orders the two participant ids so both directions of a
// conversation land in the same thread.
func threadKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if bs < as {
		as, bs = bs, as
	}
	return as + ":" + bs
}
