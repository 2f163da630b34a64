package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/socialnet/apperr"
	"github.com/cppla/socialnet/config"
	"github.com/cppla/socialnet/middleware"
	"github.com/cppla/socialnet/monitoring"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	auth *services.AuthService
}

// NewAuthController creates an AuthController.
func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register creates a local account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username      string `json:"username"`
		Email         string `json:"email"`
		Password      string `json:"password"`
		CaptchaID     string `json:"captchaId"`
		CaptchaAnswer string `json:"captchaAnswer"`
	}
	if !bindJSON(ctx, &req) {
		return
	}

	// Anti-abuse: ban, cooldown, per-IP daily limit
	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, "Too many failed registrations from this address, please try again later")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, "Too many requests, please try again later")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, "Daily registration limit reached")
		return
	}
	if config.Get().RegisterCaptchaEnabled &&
		!utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.RegistrationFailRecord(ip)
		utils.Error(ctx, http.StatusBadRequest, "Invalid or expired captcha")
		return
	}

	sess, err := a.auth.Register(ctx.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if k := apperr.KindOf(err); k == apperr.Conflict || k == apperr.Validation {
			utils.RegistrationFailRecord(ip)
		}
		respondError(ctx, err)
		return
	}

	utils.RegistrationDailyIncrement(ip)
	monitoring.RegisterSuccess.Inc()
	utils.Created(ctx, "User registered successfully", gin.H{"token": sess.Token, "user": sess.User})
}

// Login verifies email and password and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(ctx, &req) {
		monitoring.LoginFailure.WithLabelValues("bad_request").Inc()
		return
	}

	sess, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		monitoring.LoginFailure.WithLabelValues(loginFailureReason(err)).Inc()
		respondError(ctx, err)
		return
	}
	monitoring.LoginSuccess.Inc()
	utils.Success(ctx, "Login successful", gin.H{"token": sess.Token, "user": sess.User})
}

func loginFailureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrUnknownEmail):
		return "unknown_email"
	case errors.Is(err, services.ErrWrongPassword):
		return "wrong_password"
	case apperr.Is(err, apperr.Validation):
		return "invalid_input"
	default:
		return "error"
	}
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(utils.TokenTTL())
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, "Logged out successfully", nil)
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.auth.Me(ctx.Request.Context(), currentUser(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "", gin.H{"user": user})
}

// UpdateProfile edits username, bio and profile picture of the caller.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Username       *string `json:"username"`
		Bio            *string `json:"bio"`
		ProfilePicture *string `json:"profilePicture"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.auth.UpdateProfile(ctx.Request.Context(), currentUser(ctx), services.ProfileInput{
		Username:       req.Username,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	// usernames and pictures are embedded in cached posts
	invalidatePosts()
	utils.Success(ctx, "Profile updated successfully", gin.H{"user": user})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		respondError(ctx, apperr.Wrap(err, "Failed to generate captcha"))
		return
	}
	utils.Success(ctx, "", gin.H{"captchaId": id, "image": b64})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	conf, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	utils.Success(ctx, "", gin.H{"authorizationUrl": conf.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, "Missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, "Invalid or expired state")
		return
	}
	conf, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := conf.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Failed to exchange code")
		return
	}
	identity, err := fetchIdentity(reqCtx, provider, conf.Client(reqCtx, token))
	if err != nil {
		respondError(ctx, apperr.Wrap(err, "Failed to fetch provider profile"))
		return
	}

	sess, err := a.auth.LoginWithProvider(reqCtx, *identity)
	if err != nil {
		respondError(ctx, err)
		return
	}
	monitoring.LoginSuccess.Inc()
	utils.Success(ctx, "Login successful", gin.H{"token": sess.Token, "user": sess.User})
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.OAuthRedirectBase + "/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectBase + "/auth/oauth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchIdentity(ctx context.Context, provider string, client *http.Client) (*services.ProviderIdentity, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(ctx, client)
	case "google":
		return fetchGoogleUser(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*services.ProviderIdentity, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	return &services.ProviderIdentity{
		Provider:  "github",
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		Email:     email,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func fetchGoogleUser(ctx context.Context, client *http.Client) (*services.ProviderIdentity, error) {
	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	email := ""
	if payload.VerifiedEmail {
		email = payload.Email
	}
	return &services.ProviderIdentity{
		Provider:  "google",
		ID:        payload.ID,
		Username:  payload.Email,
		Email:     email,
		AvatarURL: payload.Picture,
	}, nil
}
