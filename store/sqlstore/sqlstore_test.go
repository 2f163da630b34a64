package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/socialnet/store"
	"github.com/cppla/socialnet/store/storetest"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// a named in-memory database per test, shared by the pool's connections
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(openTestDB(t))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestLikePatternEscapes(t *testing.T) {
	cases := map[string]string{
		"Ali":  "%ali%",
		"a_b":  "%a!_b%",
		"50%":  "%50!%%",
		"wow!": "%wow!!%",
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFollowEdgeStoredOnce(t *testing.T) {
	s, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	a := newUser(t, s, "alice99")
	b := newUser(t, s, "bobby")
	if err := s.Follow(ctx, a, b); err != nil {
		t.Fatalf("follow: %v", err)
	}
	var n int64
	s.db.Model(&followRow{}).Count(&n)
	if n != 1 {
		t.Fatalf("follows rows = %d, want 1", n)
	}
}
