package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
	"github.com/cppla/socialnet/utils"
)

// AuthService owns accounts: registration, login, profile edits and provider sign-in.
type AuthService struct {
	store store.Store
}

// NewAuthService creates an AuthService.
func NewAuthService(st store.Store) *AuthService {
	return &AuthService{store: st}
}

// Session is an issued token together with the account it belongs to.
type Session struct {
	Token string
	User  models.UserView
}

// RegisterInput is a local sign-up request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

const duplicateAccount = "User with this email or username already exists"

// Register validates the input, rejects taken usernames or emails and creates the account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = models.NormalizeEmail(in.Email)

	var fields []apperr.FieldError
	if msg := models.ValidateUsername(in.Username); msg != "" {
		fields = append(fields, apperr.FieldError{Field: "username", Message: msg})
	}
	if msg := models.ValidateEmail(in.Email); msg != "" {
		fields = append(fields, apperr.FieldError{Field: "email", Message: msg})
	}
	if msg := models.ValidatePassword(in.Password); msg != "" {
		fields = append(fields, apperr.FieldError{Field: "password", Message: msg})
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields...)
	}

	if taken, err := s.taken(ctx, in.Username, in.Email); err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	} else if taken {
		return nil, apperr.New(apperr.Conflict, duplicateAccount)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	u := &models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.New(apperr.Conflict, duplicateAccount)
		}
		return nil, apperr.Wrap(err, serverMessage)
	}
	return s.session(ctx, u)
}

func (s *AuthService) taken(ctx context.Context, username, email string) (bool, error) {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	return false, nil
}

// Login checks an email and password pair. Both failure causes answer "Invalid credentials".
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)
	var fields []apperr.FieldError
	if msg := models.ValidateEmail(email); msg != "" {
		fields = append(fields, apperr.FieldError{Field: "email", Message: msg})
	}
	if password == "" {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "Password is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields...)
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &apperr.Error{Kind: apperr.Authentication, Message: "Invalid credentials", Err: ErrUnknownEmail}
	}
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	if !utils.CheckPassword(u.PasswordHash, password) {
		return nil, &apperr.Error{Kind: apperr.Authentication, Message: "Invalid credentials", Err: ErrWrongPassword}
	}
	return s.session(ctx, u)
}

func (s *AuthService) session(ctx context.Context, u *models.User) (*Session, error) {
	token, err := utils.GenerateToken(u.ID, u.Username)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	view, err := userView(ctx, s.store, u, true)
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return &Session{Token: token, User: view}, nil
}

// Me returns the caller's own account including private fields.
func (s *AuthService) Me(ctx context.Context, userID string) (models.UserView, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return models.UserView{}, translate(err, "User not found")
	}
	view, err := userView(ctx, s.store, u, true)
	return view, translate(err, "User not found")
}

// ProfileInput is a profile edit. Nil fields, an empty username and an empty picture leave the value as it is.
type ProfileInput struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
}

// UpdateProfile applies a profile edit for userID.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (models.UserView, error) {
	var upd models.ProfileUpdate

	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		name := strings.TrimSpace(*in.Username)
		if msg := models.ValidateUsername(name); msg != "" {
			return models.UserView{}, invalid("username", msg)
		}
		other, err := s.store.GetUserByUsername(ctx, name)
		switch {
		case err == nil && other.ID != userID:
			return models.UserView{}, apperr.New(apperr.Conflict, "Username is already taken")
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return models.UserView{}, apperr.Wrap(err, serverMessage)
		}
		upd.Username = &name
	}
	if in.Bio != nil {
		bio, err := cleanText("bio", *in.Bio, models.ValidateBio)
		if err != nil {
			return models.UserView{}, err
		}
		upd.Bio = &bio
	}
	if in.ProfilePicture != nil && strings.TrimSpace(*in.ProfilePicture) != "" {
		pic := strings.TrimSpace(*in.ProfilePicture)
		upd.ProfilePicture = &pic
	}

	u, err := s.store.UpdateProfile(ctx, userID, upd)
	if errors.Is(err, store.ErrDuplicate) {
		return models.UserView{}, apperr.New(apperr.Conflict, "Username is already taken")
	}
	if err != nil {
		return models.UserView{}, translate(err, "User not found")
	}
	view, err := userView(ctx, s.store, u, true)
	return view, translate(err, "User not found")
}

// ProviderIdentity is what an OAuth provider tells us about a user.
type ProviderIdentity struct {
	Provider  string
	ID        string
	Username  string
	Email     string
	AvatarURL string
}

// LoginWithProvider signs in the account bound to the identity. An account with the same email is linked;
// otherwise a new one is created with a generated username.
func (s *AuthService) LoginWithProvider(ctx context.Context, id ProviderIdentity) (*Session, error) {
	if id.Provider == "" || id.ID == "" {
		return nil, apperr.New(apperr.Authentication, "Invalid provider identity")
	}
	u, err := s.store.GetUserByProvider(ctx, id.Provider, id.ID)
	if err == nil {
		return s.session(ctx, u)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Wrap(err, serverMessage)
	}

	email := models.NormalizeEmail(id.Email)
	if email != "" {
		u, err := s.store.GetUserByEmail(ctx, email)
		if err == nil {
			if err := s.store.LinkProvider(ctx, u.ID, id.Provider, id.ID); err != nil {
				return nil, apperr.Wrap(err, serverMessage)
			}
			return s.session(ctx, u)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(err, serverMessage)
		}
	} else {
		email = fmt.Sprintf("%s_%s@oauth.invalid", strings.ToLower(id.Provider), id.ID)
	}

	name, err := s.uniqueUsername(ctx, id.Username)
	if err != nil {
		return nil, err
	}
	u = &models.User{
		Username:       name,
		Email:          email,
		ProfilePicture: id.AvatarURL,
		Provider:       id.Provider,
		ProviderID:     id.ID,
	}
	err = s.store.CreateUser(ctx, u)
	if errors.Is(err, store.ErrDuplicate) {
		// a concurrent callback for the same identity may have created the account first
		if winner, lookupErr := s.store.GetUserByProvider(ctx, id.Provider, id.ID); lookupErr == nil {
			return s.session(ctx, winner)
		}
		return nil, apperr.New(apperr.Conflict, duplicateAccount)
	}
	if err != nil {
		return nil, apperr.Wrap(err, serverMessage)
	}
	return s.session(ctx, u)
}

// uniqueUsername derives a free username from hint that passes ValidateUsername.
func (s *AuthService) uniqueUsername(ctx context.Context, hint string) (string, error) {
	base := usernameBase(hint)
	for i := 0; i < 20; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s_%s", truncate(base, models.UsernameMaxLen-7), randomLetters(6))
		}
		if !models.ValidUsername(candidate) {
			continue
		}
		_, err := s.store.GetUserByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", apperr.Wrap(err, serverMessage)
		}
	}
	return "", apperr.New(apperr.Server, "Could not allocate a username")
}

// usernameBase keeps letters, digits and underscores from hint, starting with a letter.
func usernameBase(hint string) string {
	if at := strings.IndexByte(hint, '@'); at > 0 {
		hint = hint[:at]
	}
	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		case r == '_' || r == '-' || r == '.':
			if b.Len() > 0 {
				b.WriteByte('_')
			}
		}
	}
	base := strings.TrimRight(truncate(b.String(), models.UsernameMaxLen), "_0123456789")
	if models.ValidUsername(base) {
		return base
	}
	return "user_" + randomLetters(6)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func randomLetters(n int) string {
	raw := uuid.New()
	out := make([]byte, n)
	for i := range out {
		out[i] = 'a' + raw[i%len(raw)]%26
	}
	return string(out)
}
