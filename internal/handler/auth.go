package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/normalize"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
	"github.com/iliyamo/hotel-backoffice/internal/utils"
)

// AuthHandler issues access tokens to staff.
type AuthHandler struct {
	Staff     *repository.Store[*model.Staff]
	JWTSecret string
	TTLMin    int
	Timeout   time.Duration
	Log       logrus.FieldLogger
}

func NewAuthHandler(staff *repository.Store[*model.Staff], secret string, ttlMin int, timeout time.Duration, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Staff: staff, JWTSecret: secret, TTLMin: ttlMin, Timeout: timeout, Log: log}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login verifies staff credentials and returns an access token whose
// subject is the staff member's canonical id.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	st, err := h.Staff.Find(ctx, func(s *model.Staff) bool {
		return strings.ToLower(s.Username) == req.Username
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return errorJSON(c, h.Log, err)
	}
	if !utils.VerifyPassword(st.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.JWTSecret, st.CanonicalID(), st.Role, h.TTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	st.PasswordHash = ""
	doc, err := normalize.Entity(st)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode response failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"staff":  doc,
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the claims of the authenticated caller.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"role":    c.Get("role"),
	})
}
