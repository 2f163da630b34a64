package sqlstore

import (
	"context"
	"testing"

	"github.com/cppla/socialnet/models"
)

func newUser(t *testing.T, s *Store, name string) string {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return u.ID
}
