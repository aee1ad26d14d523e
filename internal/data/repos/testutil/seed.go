package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumahealth/luma-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, subject string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:      uuid.New(),
		Subject: subject,
		Name:    "Test User",
		Email:   fmt.Sprintf("%s@example.com", subject),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedMoodEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, score int, at time.Time) *types.MoodEntry {
	tb.Helper()
	m := &types.MoodEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Score:     score,
		Timestamp: at,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed mood entry: %v", err)
	}
	return m
}

func SeedActivityEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, activityType string, duration *int, at time.Time) *types.ActivityEntry {
	tb.Helper()
	a := &types.ActivityEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      activityType,
		Name:      activityType,
		Duration:  duration,
		Completed: true,
		Timestamp: at,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed activity entry: %v", err)
	}
	return a
}

func SeedChatSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID string) *types.ChatSession {
	tb.Helper()
	s := &types.ChatSession{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Status:    types.ChatSessionActive,
		StartTime: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed chat session: %v", err)
	}
	return s
}

func PtrInt(v int) *int { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
