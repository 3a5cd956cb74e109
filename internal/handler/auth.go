package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/config"
	"github.com/iliyamo/eventdesk/internal/middleware"
	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/repository"
	"github.com/iliyamo/eventdesk/internal/utils"
)

// Messages shown verbatim by clients on the sign-in screen.
const (
	msgAccountCreated     = "Account Created!"
	msgInvalidCredentials = "Invalid login credentials"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.AuthConfig
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.AuthConfig, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type signupReq struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required,max=200"`
	RollNumber string `json:"roll_number" validate:"required,max=64"`
}
type signinReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// UserView is the public shape of an organizer account.
type UserView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
}

type authResp struct {
	Message string    `json:"message,omitempty"`
	User    UserView  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func viewOf(u model.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name, RollNumber: u.RollNumber}
}

// issue creates a fresh access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    viewOf(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Signup creates an organizer account and signs it in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, err, "signup failed")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, strings.TrimSpace(req.Name), strings.TrimSpace(req.RollNumber), h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err, "create user failed")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err, "issue tokens failed")
	}
	resp.Message = msgAccountCreated
	return c.JSON(http.StatusCreated, resp)
}

// Signin verifies credentials and returns a new token pair.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, err, "signin failed")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgInvalidCredentials})
		}
		return fail(c, err, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgInvalidCredentials})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbContext(c)
	defer cancel()

	userID, err := h.Tokens.ConsumeRefresh(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return fail(c, err, "revoke refresh failed")
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return fail(c, err, "load user failed")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Signout revokes one session or all of them.  A refresh_token in the body
// revokes that token; otherwise a valid bearer token revokes every refresh
// token of its user.
func (h *AuthHandler) Signout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := dbContext(c)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, err, "signout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}

	raw := middleware.BearerToken(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	uid, err := middleware.ParseSubject(h.Cfg.JWTSecret, raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return fail(c, err, "signout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated organizer.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ownerID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return fail(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, viewOf(u))
}
