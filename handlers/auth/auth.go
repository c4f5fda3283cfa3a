package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/config"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	stateCookie   = "oauth_state"
	tokenLifetime = 7 * 24 * time.Hour
	// adminRedirect is where the admin UI picks up the issued token.
	adminRedirect = "/admin/"
)

var (
	loginHandler    http.HandlerFunc
	callbackHandler http.HandlerFunc
)

var (
	githubOauthConfig *oauth2.Config
	jwtSecret         []byte

	oidcOauthConfig *oauth2.Config
	verifier        *oidc.IDTokenVerifier
)

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Login     string `json:"login"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl"`
	Name      string `json:"name"`
}

// OIDCClaims represents the claims from OIDC token
type OIDCClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	Sub               string `json:"sub"`
}

// InitAuth picks the login provider (OIDC first, then GitHub) and sets the
// JWT signing secret.
func InitAuth(cfg config.Auth) {
	oidcConfigured := cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != ""
	githubConfigured := cfg.GitHubClientID != "" && cfg.GitHubClientSecret != ""

	switch {
	case oidcConfigured:
		initOIDC(cfg)
		loginHandler, callbackHandler = HandleOIDCLogin, HandleOIDCCallback
	case githubConfigured:
		initGitHub(cfg)
		loginHandler, callbackHandler = HandleGitHubLogin, HandleGitHubCallback
	default:
		logrus.Warn("No login provider configured, admin routes only accept existing tokens")
		loginHandler, callbackHandler = notConfigured, notConfigured
	}

	SetSecret(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is empty, admin tokens can be neither issued nor verified")
	}
}

// SetSecret replaces the JWT signing secret.
func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

func notConfigured(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Login provider is not configured", http.StatusInternalServerError)
}

func HandleLogin(w http.ResponseWriter, r *http.Request) {
	if loginHandler == nil {
		notConfigured(w, r)
		return
	}
	loginHandler(w, r)
}

func HandleCallback(w http.ResponseWriter, r *http.Request) {
	if callbackHandler == nil {
		notConfigured(w, r)
		return
	}
	callbackHandler(w, r)
}

func initGitHub(cfg config.Auth) {
	githubOauthConfig = &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
}

func initOIDC(cfg config.Auth) {
	log := logrus.WithField("issuer", cfg.OIDCIssuerURL)
	if cfg.OIDCClientSecret == "" {
		log.Warn("OIDC_CLIENT_SECRET is empty, OIDC login disabled")
		return
	}

	provider, err := oidc.NewProvider(context.Background(), cfg.OIDCIssuerURL)
	if err != nil {
		log.WithError(err).Error("OIDC discovery failed")
		return
	}

	oidcOauthConfig = &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		Endpoint:     provider.Endpoint(),
	}
	verifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})

	log.Info("OIDC login enabled")
}

func setStateCookie(w http.ResponseWriter, r *http.Request) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

func validState(r *http.Request) bool {
	cookie, err := r.Cookie(stateCookie)
	return err == nil && cookie.Value != "" && cookie.Value == r.FormValue("state")
}

// loginFailed logs err for provider and sends the browser back to the site
// root without a token.
func loginFailed(w http.ResponseWriter, r *http.Request, provider, step string, err error) {
	log := logrus.WithFields(logrus.Fields{"provider": provider, "step": step})
	if err != nil {
		log = log.WithError(err)
	}
	log.Warn("Admin login failed")
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func redirectWithToken(w http.ResponseWriter, r *http.Request, user *core.User) {
	jwtToken, err := CreateJWT(user)
	if err != nil {
		loginFailed(w, r, "jwt", "sign", err)
		return
	}
	logrus.WithField("login", user.Login).Info("Issued admin token")
	http.Redirect(w, r, adminRedirect+"?token="+url.QueryEscape(jwtToken), http.StatusTemporaryRedirect)
}

// beginLogin stores a fresh state cookie and redirects to the provider.
func beginLogin(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config, opts ...oauth2.AuthCodeOption) {
	if cfg == nil {
		http.Error(w, "Login provider is not configured", http.StatusInternalServerError)
		return
	}
	state, err := setStateCookie(w, r)
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, cfg.AuthCodeURL(state, opts...), http.StatusTemporaryRedirect)
}

// exchange checks the state cookie and trades the callback code for a token.
func exchange(r *http.Request, cfg *oauth2.Config) (*oauth2.Token, string, error) {
	if !validState(r) {
		return nil, "state", fmt.Errorf("state cookie does not match")
	}
	code := r.FormValue("code")
	if code == "" {
		return nil, "code", fmt.Errorf("callback carries no code")
	}
	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		return nil, "exchange", err
	}
	return token, "", nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
}

func fetchGitHubUser(r *http.Request, token *oauth2.Token) (*githubUser, error) {
	resp, err := githubOauthConfig.Client(r.Context(), token).Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("github user endpoint returned %d", resp.StatusCode)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	beginLogin(w, r, githubOauthConfig)
}

func HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if githubOauthConfig == nil {
		http.Error(w, "Login provider is not configured", http.StatusInternalServerError)
		return
	}
	token, step, err := exchange(r, githubOauthConfig)
	if err != nil {
		loginFailed(w, r, "github", step, err)
		return
	}

	u, err := fetchGitHubUser(r, token)
	if err != nil {
		loginFailed(w, r, "github", "user", err)
		return
	}

	redirectWithToken(w, r, &core.User{
		Subject:   fmt.Sprintf("github:%d", u.ID),
		Login:     u.Login,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Name:      u.Name,
	})
}

func HandleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	beginLogin(w, r, oidcOauthConfig, oauth2.AccessTypeOffline)
}

func HandleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if oidcOauthConfig == nil {
		http.Error(w, "Login provider is not configured", http.StatusInternalServerError)
		return
	}
	token, step, err := exchange(r, oidcOauthConfig)
	if err != nil {
		loginFailed(w, r, "oidc", step, err)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		loginFailed(w, r, "oidc", "id_token", nil)
		return
	}
	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		loginFailed(w, r, "oidc", "verify", err)
		return
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		loginFailed(w, r, "oidc", "claims", err)
		return
	}

	user := &core.User{
		Subject:   claims.Sub,
		Login:     claims.PreferredUsername,
		Email:     claims.Email,
		AvatarURL: claims.Picture,
		Name:      claims.Name,
	}
	if user.Login == "" {
		user.Login = user.Email
	}
	redirectWithToken(w, r, user)
}

// CreateJWT signs a token for user.
func CreateJWT(user *core.User) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Login:     user.Login,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Name:      user.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("jwt secret is not configured")
	}
	claims := &AppClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse admin token: %w", err)
	}
	return claims, nil
}
