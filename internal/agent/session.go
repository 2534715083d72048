package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxContextEntries = 20
	contextSnippetLen = 50
	sessionKeyPrefix  = "session:"
)

// UserProfile is what the team has learnt about the user.
type UserProfile struct {
	Name        string         `json:"name,omitempty"`
	Location    string         `json:"location,omitempty"`
	Language    string         `json:"language"`
	Preferences map[string]any `json:"preferences,omitempty"`
	BudgetRange string         `json:"budget_range,omitempty"`
}

// CulturalRequirements are religious and cultural constraints on recommendations.
type CulturalRequirements struct {
	HalalRequired          bool     `json:"halal_required"`
	FemaleDoctorPreferred  bool     `json:"female_doctor_preferred"`
	PrayerFacilitiesNeeded bool     `json:"prayer_facilities_needed"`
	DietaryRestrictions    []string `json:"dietary_restrictions,omitempty"`
}

// ReviewInsight records one review analysis.
type ReviewInsight struct {
	Subject   string    `json:"subject"`
	Reviews   int       `json:"reviews"`
	Score     float64   `json:"score"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the team's shared state for one user and chat.
type Session struct {
	ID                   string               `json:"id"`
	UserProfile          UserProfile          `json:"user_profile"`
	ConversationContext  []string             `json:"conversation_context"`
	MedicalInterests     []string             `json:"medical_interests"`
	CulturalRequirements CulturalRequirements `json:"cultural_requirements"`
	AnalyzedReviews      []ReviewInsight      `json:"analyzed_reviews"`
	RecommendedClinics   []string             `json:"recommended_clinics"`
	SessionNotes         []string             `json:"session_notes"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// NewSession returns an empty English session.
func NewSession(id string) *Session {
	return &Session{ID: id, UserProfile: UserProfile{Language: "en"}}
}

// SessionID joins a Telegram user and chat into a session id.
func SessionID(userID, chatID int64) string {
	return fmt.Sprintf("%d:%d", userID, chatID)
}

// AddContext appends "HH:MM: <first 50 runes>..." and keeps the last 20 entries.
func (s *Session) AddContext(message string, now time.Time) {
	snippet := []rune(message)
	if len(snippet) > contextSnippetLen {
		snippet = snippet[:contextSnippetLen]
	}
	s.ConversationContext = append(s.ConversationContext, now.Format("15:04")+": "+string(snippet)+"...")
	if n := len(s.ConversationContext); n > maxContextEntries {
		s.ConversationContext = s.ConversationContext[n-maxContextEntries:]
	}
}

// AddInterest records a procedure of interest once.
func (s *Session) AddInterest(procedure string) {
	for _, v := range s.MedicalInterests {
		if strings.EqualFold(v, procedure) {
			return
		}
	}
	s.MedicalInterests = append(s.MedicalInterests, procedure)
}

// RecommendClinic records a recommended clinic once.
func (s *Session) RecommendClinic(name string) {
	for _, v := range s.RecommendedClinics {
		if v == name {
			return
		}
	}
	s.RecommendedClinics = append(s.RecommendedClinics, name)
}

// ActiveRequirements lists the cultural requirements that are switched on.
func (s *Session) ActiveRequirements() []string {
	var out []string
	c := s.CulturalRequirements
	if c.HalalRequired {
		out = append(out, "halal_required")
	}
	if c.FemaleDoctorPreferred {
		out = append(out, "female_doctor_preferred")
	}
	if c.PrayerFacilitiesNeeded {
		out = append(out, "prayer_facilities_needed")
	}
	return out
}

// Summary is a one-line description of the session for prompts and insights.
func (s *Session) Summary() string {
	var parts []string
	if s.UserProfile.Name != "" {
		loc := s.UserProfile.Location
		if loc == "" {
			loc = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("User: %s from %s", s.UserProfile.Name, loc))
	} else if s.UserProfile.Location != "" {
		parts = append(parts, "Area: "+s.UserProfile.Location)
	}
	if len(s.MedicalInterests) > 0 {
		interests := append([]string(nil), s.MedicalInterests...)
		sort.Strings(interests)
		parts = append(parts, "Interested in: "+strings.Join(interests, ", "))
	}
	if reqs := s.ActiveRequirements(); len(reqs) > 0 {
		parts = append(parts, "Requirements: "+strings.Join(reqs, ", "))
	}
	if n := len(s.RecommendedClinics); n > 0 {
		parts = append(parts, fmt.Sprintf("Recommended %d clinics", n))
	}
	if len(parts) == 0 {
		return "New session"
	}
	return strings.Join(parts, " | ")
}

// SessionStore persists sessions between messages.
type SessionStore interface {
	// Load returns the stored session or a new one when none exists.
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions as JSON values that expire after ttl.
type RedisSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(rdb redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKeyPrefix+id).Err()
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return NewSession(id), nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// sessionLocks serializes load-modify-save cycles per session id within
// this process.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until id is free and returns its release func.
func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		if sl.refs--; sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
