package services_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/campuscove/internal/helpers"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/services"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func claimsFor(u *models.User) *helpers.EnhancedClaims {
	return &helpers.EnhancedClaims{
		CustomClaims: &helpers.CustomClaims{UserID: u.ID.Hex()},
		UserID:       u.ID,
		Role:         u.Role,
		Name:         u.Name,
		Email:        u.Email,
	}
}

func assertKind(t *testing.T, err error, want services.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var se *services.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *services.Error, got %T: %v", err, err)
	}
	if se.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, se.Kind, err)
	}
}
