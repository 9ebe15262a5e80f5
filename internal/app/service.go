package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"orbit/api/internal/auth"
	"orbit/api/internal/catalogue"
	"orbit/api/internal/config"
	"orbit/api/internal/roster"
	"orbit/api/internal/search"
	"golang.org/x/crypto/bcrypt"
)

type Session struct {
	Token     string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// ResolvedLink is the answer to a link resolution request: the individual
// link parts and, when the URL is an embeddable video or document, its
// embed form.
type ResolvedLink struct {
	URL   string   `json:"url"`
	Embed string   `json:"embed"`
	Parts []string `json:"parts"`
}

type catalogueLoader interface {
	Fetch(ctx context.Context) ([]catalogue.Item, error)
}

type rosterClient interface {
	Verify(ctx context.Context, email string) (roster.Verdict, error)
}

type snapshotStore interface {
	Save(ctx context.Context, items []catalogue.Item, ttl time.Duration) error
	Load(ctx context.Context) ([]catalogue.Item, error)
	Ping(ctx context.Context) error
}

type sessionSearcher interface {
	Search(q search.Query) search.Response
	ReplaceAll(sessions []search.SessionRecord)
}

type Service struct {
	cfg    config.Config
	loader catalogueLoader
	roster rosterClient
	cache  snapshotStore // nil when Redis is not configured
	search sessionSearcher
	table  []catalogue.ProgramMeta

	mu        sync.RWMutex
	items     []catalogue.Item
	loadedAt  time.Time
	refreshMu sync.Mutex
}

func New(cfg config.Config, loader catalogueLoader, rosterClient rosterClient, cache snapshotStore, searcher sessionSearcher) *Service {
	if searcher == nil {
		searcher = search.NewService(nil, search.NewMemory())
	}
	return &Service{
		cfg:    cfg,
		loader: loader,
		roster: rosterClient,
		cache:  cache,
		search: searcher,
		table:  catalogue.DefaultProgramTable(),
	}
}

// Refresh fetches the catalogue from the source and swaps it in atomically.
// Concurrent calls are serialized; the second caller re-fetches rather than
// piggybacking, which is acceptable at this endpoint's traffic. When the
// fetch fails and nothing is loaded yet, the last Redis snapshot is used so
// a restart during an upstream outage still serves content.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	items, err := s.loader.Fetch(ctx)
	if err != nil {
		if s.ItemCount() == 0 && s.cache != nil {
			if cached, cacheErr := s.cache.Load(ctx); cacheErr == nil {
				log.Printf("catalogue: fetch failed, serving %d items from snapshot: %v", len(cached), err)
				s.install(cached)
				return nil
			}
		}
		return fmt.Errorf("refresh catalogue: %w", err)
	}

	s.install(items)

	if s.cache != nil {
		if err := s.cache.Save(ctx, items, s.cfg.CacheTTL); err != nil {
			log.Printf("catalogue: save snapshot: %v", err)
		}
	}
	return nil
}

func (s *Service) install(items []catalogue.Item) {
	s.mu.Lock()
	s.items = items
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.search.ReplaceAll(sessionRecords(items))
}

func sessionRecords(items []catalogue.Item) []search.SessionRecord {
	records := make([]search.SessionRecord, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		id := searchDocID(item)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = id + "-" + strconv.Itoa(n)
		}
		records = append(records, search.SessionRecord{
			ID:        id,
			Code:      item.UniqueCode,
			Title:     item.SubTopicTitle,
			Unit:      item.TopicTitle,
			Objective: item.LearningObjective,
			Program:   item.ProgramID,
			Level:     item.LevelID,
		})
	}
	return records
}

// searchDocID derives the search index primary key for an item. Unique codes
// are used where the sheet provides one, restricted to the characters the
// index accepts; rows without a code get a stable content hash so they stay
// searchable instead of failing the whole indexing batch.
func searchDocID(item catalogue.Item) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, item.UniqueCode)
	if strings.Trim(id, "-") != "" {
		return id
	}
	sum := sha1.Sum([]byte(strings.Join([]string{
		item.ProgramID,
		item.LevelID,
		strconv.Itoa(item.Order),
		item.TopicTitle,
		item.SubTopicTitle,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

func (s *Service) snapshot() []catalogue.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// ItemCount reports how many catalogue items are currently loaded.
func (s *Service) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// LoadedAt reports when the catalogue was last swapped in.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Programs lists the known programs in curated order.
func (s *Service) Programs(ctx context.Context) ([]catalogue.ProgramEntry, error) {
	items := s.snapshot()
	if len(items) == 0 {
		return nil, errCatalogueUnavailable()
	}
	return catalogue.Programs(items, s.table), nil
}

// Levels lists the levels of one program, Trial Class first.
func (s *Service) Levels(ctx context.Context, programID string) ([]catalogue.LevelEntry, error) {
	items := s.snapshot()
	if len(items) == 0 {
		return nil, errCatalogueUnavailable()
	}
	levels := catalogue.Levels(items, programID)
	if len(levels) == 0 {
		return nil, errProgramNotFound(programID)
	}
	return levels, nil
}

// UnitGroups returns the sessions of one program level grouped by unit. A
// known program with no sessions at the requested level yields an empty
// list, not an error.
func (s *Service) UnitGroups(ctx context.Context, programID, levelID string) ([]catalogue.UnitGroup, error) {
	items := s.snapshot()
	if len(items) == 0 {
		return nil, errCatalogueUnavailable()
	}
	if len(catalogue.Levels(items, programID)) == 0 {
		return nil, errProgramNotFound(programID)
	}
	groups := catalogue.UnitGroups(items, programID, levelID)
	if groups == nil {
		groups = []catalogue.UnitGroup{}
	}
	return groups, nil
}

// Session looks up a single catalogue item by its unique code.
func (s *Service) Session(ctx context.Context, code string) (catalogue.Item, error) {
	for _, item := range s.snapshot() {
		if item.UniqueCode != "" && item.UniqueCode == code {
			return item, nil
		}
	}
	return catalogue.Item{}, errSessionNotFound(code)
}

// Resolve splits a raw link cell and derives the embed form of its first
// part.
func (s *Service) Resolve(rawURL string) ResolvedLink {
	parts := catalogue.SplitLinks(rawURL)
	if parts == nil {
		parts = []string{}
	}
	embed := ""
	if len(parts) > 0 {
		embed = catalogue.EmbedURL(parts[0])
	}
	return ResolvedLink{URL: rawURL, Embed: embed, Parts: parts}
}

// Search runs a full-text query over the indexed sessions.
func (s *Service) Search(ctx context.Context, text, program, level string, limit, offset int) search.Response {
	return s.search.Search(search.Query{
		Text:    text,
		Program: program,
		Level:   level,
		Limit:   limit,
		Offset:  offset,
	})
}

// Login verifies the email against the roster and issues a session token.
func (s *Service) Login(ctx context.Context, email string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, errValidation("email is required")
	}

	verdict, err := s.roster.Verify(ctx, email)
	if err != nil {
		log.Printf("login: roster lookup for %s: %v", email, err)
		return Session{}, errRosterUnavailable()
	}
	if !verdict.Success {
		return Session{}, errLoginRejected(verdict.Message)
	}

	expiresAt := time.Now().Add(s.cfg.SessionTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Email: email,
		Name:  verdict.Name,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	return Session{
		Token:     token,
		Email:     email,
		Name:      verdict.Name,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken validates a bearer token and reconstructs the session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// RefreshAuthorized checks the manual refresh token against the configured
// bcrypt hash. An unset hash disables the endpoint entirely.
func (s *Service) RefreshAuthorized(token string) bool {
	if s.cfg.AdminTokenHash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminTokenHash), []byte(token)) == nil
}

// Ping checks the snapshot cache when one is configured.
func (s *Service) Ping(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Ping(ctx)
}
