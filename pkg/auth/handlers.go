package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "little_library_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = TokenExpiry
)

type handler struct {
	authService *Service
}

type tokenResponse struct {
	User  MeResponse `json:"user"`
	Token string     `json:"token"`
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, params.Name, params.Email, params.Password)
	if err != nil {
		return err
	}

	echologger.FromEchoContext(c).Info("user registered", logger.Data{"user_id": user.ID})

	return h.startSession(c, http.StatusCreated, user.ID)
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	return h.startSession(c, http.StatusOK, user.ID)
}

// startSession issues a token for the user, sets it as an HTTP-only cookie,
// and also returns it in the body for bearer clients.
func (h *handler) startSession(c echo.Context, status, userID int) error {
	ctx := c.Request().Context()

	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	c.SetCookie(newCookie(c, token, int(CookieMaxAge.Seconds())))

	return errors.WithStack(c.JSON(status, tokenResponse{
		User:  buildMeResponse(user),
		Token: token,
	}))
}

func (h *handler) logout(c echo.Context) error {
	// MaxAge -1 clears the cookie.
	c.SetCookie(newCookie(c, "", -1))

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"}))
}

func (h *handler) me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := MustUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user)))
}

func newCookie(c echo.Context, value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}
