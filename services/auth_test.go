package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
	"github.com/cppla/socialnet/utils"
)

func TestRegisterLoginScenario(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	sess, err := svc.Auth.Register(ctx, RegisterInput{Username: "alice99", Email: "alice@x.com", Password: "Passw0rd"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Token == "" || sess.User.Username != "alice99" || sess.User.Email != "alice@x.com" {
		t.Fatalf("unexpected session %+v", sess)
	}
	claims, err := utils.ParseToken(sess.Token)
	if err != nil || claims.UserID != sess.User.ID {
		t.Fatalf("token claims %+v, err %v", claims, err)
	}

	login, err := svc.Auth.Login(ctx, " Alice@X.com ", "Passw0rd")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != sess.User.ID {
		t.Fatalf("login user %s, want %s", login.User.ID, sess.User.ID)
	}

	_, err = svc.Auth.Login(ctx, "alice@x.com", "wrong")
	wantKind(t, err, apperr.Authentication, "Invalid credentials")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("cause = %v, want ErrWrongPassword", err)
	}
	_, err = svc.Auth.Login(ctx, "nobody@x.com", "Passw0rd")
	if !errors.Is(err, ErrUnknownEmail) {
		t.Fatalf("cause = %v, want ErrUnknownEmail", err)
	}

	_, err = svc.Auth.Register(ctx, RegisterInput{Username: "alice99", Email: "other@x.com", Password: "Passw0rd"})
	wantKind(t, err, apperr.Conflict, "User with this email or username already exists")
	_, err = svc.Auth.Register(ctx, RegisterInput{Username: "alice100", Email: "ALICE@x.com", Password: "Passw0rd"})
	wantKind(t, err, apperr.Conflict, "User with this email or username already exists")
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestServices(t)
	_, err := svc.Auth.Register(context.Background(), RegisterInput{Username: "1abc", Email: "nope", Password: "short"})
	wantKind(t, err, apperr.Validation, "Validation failed")

	var ae *apperr.Error
	errors.As(err, &ae)
	fields := map[string]bool{}
	for _, f := range ae.Fields {
		fields[f.Field] = true
	}
	for _, f := range []string{"username", "email", "password"} {
		if !fields[f] {
			t.Errorf("missing field error for %s in %+v", f, ae.Fields)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	register(t, svc, "bob")

	taken := "bob"
	_, err := svc.Auth.UpdateProfile(ctx, alice.User.ID, ProfileInput{Username: &taken})
	wantKind(t, err, apperr.Conflict, "Username is already taken")

	bad := "ab12345"
	_, err = svc.Auth.UpdateProfile(ctx, alice.User.ID, ProfileInput{Username: &bad})
	wantKind(t, err, apperr.Validation, "")

	same := "alice"
	bio := "hi <script>x</script>there"
	v, err := svc.Auth.UpdateProfile(ctx, alice.User.ID, ProfileInput{Username: &same, Bio: &bio})
	if err != nil {
		t.Fatalf("update own username: %v", err)
	}
	if v.Username != "alice" || v.Bio != "hi there" {
		t.Fatalf("unexpected view %+v", v)
	}

	empty := ""
	v, err = svc.Auth.UpdateProfile(ctx, alice.User.ID, ProfileInput{Username: &empty, ProfilePicture: &empty})
	if err != nil {
		t.Fatalf("blank update: %v", err)
	}
	if v.Username != "alice" {
		t.Fatalf("blank username changed the name to %q", v.Username)
	}
}

func TestLoginWithProvider(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")

	linked, err := svc.Auth.LoginWithProvider(ctx, ProviderIdentity{Provider: "github", ID: "42", Username: "al", Email: "ALICE@example.com"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked.User.ID != alice.User.ID {
		t.Fatalf("linked to %s, want %s", linked.User.ID, alice.User.ID)
	}
	again, err := svc.Auth.LoginWithProvider(ctx, ProviderIdentity{Provider: "github", ID: "42"})
	if err != nil || again.User.ID != alice.User.ID {
		t.Fatalf("provider lookup: %v %+v", err, again)
	}

	fresh, err := svc.Auth.LoginWithProvider(ctx, ProviderIdentity{Provider: "google", ID: "7", Username: "alice@gmail.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if fresh.User.ID == alice.User.ID || !models.ValidUsername(fresh.User.Username) || fresh.User.Username == "alice" {
		t.Fatalf("unexpected new account %+v", fresh.User)
	}
}

// staleProviderLookup misses the first provider lookup, as a callback does when another one for the
// same identity commits in between.
type staleProviderLookup struct {
	store.Store
	missed bool
}

func (s *staleProviderLookup) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	if !s.missed {
		s.missed = true
		return nil, store.ErrNotFound
	}
	return s.Store.GetUserByProvider(ctx, provider, providerID)
}

func TestLoginWithProviderConcurrentCreate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	identity := ProviderIdentity{Provider: "github", ID: "99", Username: "octocat"}

	first, err := NewAuthService(st).LoginWithProvider(ctx, identity)
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}
	second, err := NewAuthService(&staleProviderLookup{Store: st}).LoginWithProvider(ctx, identity)
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}
	if second.User.ID != first.User.ID || second.Token == "" {
		t.Fatalf("second callback signed in %+v, want %s", second.User, first.User.ID)
	}
}

func TestUsernameBase(t *testing.T) {
	for _, hint := range []string{"octo-cat", "john.doe@gmail.com", "12345", "", "a", "bob1234567", "__x__y", "名字"} {
		got := usernameBase(hint)
		if !models.ValidUsername(got) {
			t.Errorf("usernameBase(%q) = %q is not a valid username", hint, got)
		}
	}
	if got := usernameBase("octo-cat"); got != "octo_cat" {
		t.Errorf("usernameBase(octo-cat) = %q", got)
	}
}
