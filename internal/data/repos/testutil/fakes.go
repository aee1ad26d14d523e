package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
)

// In-memory repo fakes for service and workflow tests. They implement the
// repo interfaces with slice-backed storage and no locking; tests drive
// them from a single goroutine.

type FakeMoodRepo struct {
	Entries []*types.MoodEntry
	Err     error
}

func (f *FakeMoodRepo) Create(dbc dbctx.Context, entries []*types.MoodEntry) ([]*types.MoodEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	f.Entries = append(f.Entries, entries...)
	return entries, nil
}

func (f *FakeMoodRepo) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.MoodEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []*types.MoodEntry
	for _, e := range f.Entries {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FakeMoodRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.MoodEntry, error) {
	out, err := f.ListSince(dbc, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeMoodRepo) AverageSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (*float64, int, error) {
	entries, err := f.ListSince(dbc, userID, since)
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, 0, nil
	}
	sum := 0
	for _, e := range entries {
		sum += e.Score
	}
	avg := float64(sum) / float64(len(entries))
	return &avg, len(entries), nil
}

func (f *FakeMoodRepo) CountLowSince(dbc dbctx.Context, userID uuid.UUID, belowScore int, since time.Time) (int64, error) {
	entries, err := f.ListSince(dbc, userID, since)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, e := range entries {
		if e.Score < belowScore {
			n++
		}
	}
	return n, nil
}

// SeedMood inserts an entry scored score, ago before now.
func (f *FakeMoodRepo) SeedMood(userID uuid.UUID, score int, ago time.Duration) *types.MoodEntry {
	e := &types.MoodEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Score:     score,
		Timestamp: time.Now().Add(-ago),
	}
	f.Entries = append(f.Entries, e)
	return e
}

type FakeActivityRepo struct {
	Entries []*types.ActivityEntry
	Err     error
}

func (f *FakeActivityRepo) Create(dbc dbctx.Context, entries []*types.ActivityEntry) ([]*types.ActivityEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	f.Entries = append(f.Entries, entries...)
	return entries, nil
}

func (f *FakeActivityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityEntry, error) {
	for _, e := range f.Entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *FakeActivityRepo) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ActivityEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []*types.ActivityEntry
	for _, e := range f.Entries {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FakeActivityRepo) StatsSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (*repos.ActivityStats, error) {
	entries, err := f.ListSince(dbc, userID, since)
	if err != nil {
		return nil, err
	}
	stats := &repos.ActivityStats{}
	for _, e := range entries {
		if e.Completed {
			stats.Count++
			if e.Duration != nil {
				stats.TotalMinutes += int64(*e.Duration)
			}
		}
	}
	return stats, nil
}

func (f *FakeActivityRepo) CountByType(dbc dbctx.Context, userID uuid.UUID, activityType string) (int64, error) {
	var n int64
	for _, e := range f.Entries {
		if e.UserID == userID && e.Type == activityType {
			n++
		}
	}
	return n, nil
}

func (f *FakeActivityRepo) CountAll(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.Entries {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *FakeActivityRepo) TotalMinutes(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.Entries {
		if e.UserID == userID && e.Duration != nil {
			n += int64(*e.Duration)
		}
	}
	return n, nil
}

func (f *FakeActivityRepo) TypeBreakdownSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (map[string]int64, error) {
	entries, err := f.ListSince(dbc, userID, since)
	if err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, e := range entries {
		out[e.Type]++
	}
	return out, nil
}

type FakeUserRepo struct {
	Users map[uuid.UUID]*types.User
}

func (f *FakeUserRepo) UpsertBySubject(dbc dbctx.Context, subject, name, email string) (*types.User, error) {
	if f.Users == nil {
		f.Users = map[uuid.UUID]*types.User{}
	}
	for _, u := range f.Users {
		if u.Subject == subject {
			if name != "" {
				u.Name = name
			}
			if email != "" {
				u.Email = email
			}
			return u, nil
		}
	}
	u := &types.User{ID: uuid.New(), Subject: subject, Name: name, Email: email}
	f.Users[u.ID] = u
	return u, nil
}

func (f *FakeUserRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	return f.Users[id], nil
}

func (f *FakeUserRepo) GetBySubject(dbc dbctx.Context, subject string) (*types.User, error) {
	for _, u := range f.Users {
		if u.Subject == subject {
			return u, nil
		}
	}
	return nil, nil
}

type FakeRecommendationRepo struct {
	Rows []*types.ActivityRecommendation
	Err  error
}

func (f *FakeRecommendationRepo) Create(dbc dbctx.Context, recs []*types.ActivityRecommendation) ([]*types.ActivityRecommendation, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	now := time.Now()
	for _, r := range recs {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}
	f.Rows = append(f.Rows, recs...)
	return recs, nil
}

func (f *FakeRecommendationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityRecommendation, error) {
	for _, r := range f.Rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *FakeRecommendationRepo) ListActive(dbc dbctx.Context, userID uuid.UUID, maxAge time.Duration, limit int) ([]*types.ActivityRecommendation, error) {
	cutoff := time.Now().Add(-maxAge)
	var out []*types.ActivityRecommendation
	for _, r := range f.Rows {
		if r.UserID == userID && !r.IsCompleted && !r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRecommendationRepo) ListHistory(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.ActivityRecommendation, int64, error) {
	var all []*types.ActivityRecommendation
	for _, r := range f.Rows {
		if r.UserID == userID {
			all = append(all, r)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *FakeRecommendationRepo) MarkCompleted(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	for _, r := range f.Rows {
		if r.ID == id && r.UserID == userID && !r.IsCompleted {
			now := time.Now()
			r.IsCompleted = true
			r.CompletedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeRecommendationRepo) CountCreatedSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	for _, r := range f.Rows {
		if r.UserID == userID && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *FakeRecommendationRepo) TypeBreakdown(dbc dbctx.Context, userID uuid.UUID) (map[string]int64, error) {
	out := map[string]int64{}
	for _, r := range f.Rows {
		if r.UserID == userID {
			out[r.ActivityType]++
		}
	}
	return out, nil
}

func (f *FakeRecommendationRepo) GetStats(dbc dbctx.Context, userID uuid.UUID) (*repos.RecommendationStats, error) {
	stats := &repos.RecommendationStats{}
	for _, r := range f.Rows {
		if r.UserID == userID {
			stats.Total++
			if r.IsCompleted {
				stats.Completed++
			}
		}
	}
	return stats, nil
}

type FakeChatSessionRepo struct {
	Sessions []*types.ChatSession
}

func (f *FakeChatSessionRepo) GetBySessionID(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error) {
	for _, s := range f.Sessions {
		if s.UserID == userID && s.SessionID == sessionID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *FakeChatSessionRepo) GetOrCreate(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error) {
	if s, _ := f.GetBySessionID(dbc, userID, sessionID); s != nil {
		return s, nil
	}
	s := &types.ChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Status:    types.ChatSessionActive,
		StartTime: time.Now(),
	}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

func (f *FakeChatSessionRepo) GetByRowID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	for _, s := range f.Sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *FakeChatSessionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	var out []*types.ChatSession
	for _, s := range f.Sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeChatSessionRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	for _, s := range f.Sessions {
		if s.ID == id {
			s.Status = status
		}
	}
	return nil
}

func (f *FakeChatSessionRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	out, _ := f.ListByUser(dbc, userID, 0)
	return int64(len(out)), nil
}

func (f *FakeChatSessionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	kept := f.Sessions[:0]
	for _, s := range f.Sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.Sessions = kept
	return nil
}

type FakeChatMessageRepo struct {
	Messages []*types.ChatMessage
}

func (f *FakeChatMessageRepo) Create(dbc dbctx.Context, messages []*types.ChatMessage) ([]*types.ChatMessage, error) {
	for _, m := range messages {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
	}
	f.Messages = append(f.Messages, messages...)
	return messages, nil
}

func (f *FakeChatMessageRepo) ListBySession(dbc dbctx.Context, sessionRowID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	var out []*types.ChatMessage
	for _, m := range f.Messages {
		if m.SessionRowID == sessionRowID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeChatMessageRepo) CountBySession(dbc dbctx.Context, sessionRowID uuid.UUID) (int64, error) {
	out, _ := f.ListBySession(dbc, sessionRowID, 0)
	return int64(len(out)), nil
}

type FakeAnalysisRepo struct {
	Rows []*types.SessionAnalysis
}

func (f *FakeAnalysisRepo) Create(dbc dbctx.Context, analyses []*types.SessionAnalysis) ([]*types.SessionAnalysis, error) {
	f.Rows = append(f.Rows, analyses...)
	return analyses, nil
}

func (f *FakeAnalysisRepo) GetLatestBySession(dbc dbctx.Context, sessionRowID uuid.UUID) (*types.SessionAnalysis, error) {
	for i := len(f.Rows) - 1; i >= 0; i-- {
		if f.Rows[i].SessionRowID == sessionRowID {
			return f.Rows[i], nil
		}
	}
	return nil, nil
}

func (f *FakeAnalysisRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SessionAnalysis, error) {
	var out []*types.SessionAnalysis
	for _, r := range f.Rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
