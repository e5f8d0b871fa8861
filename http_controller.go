package credentials

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// RefreshCookieName carries the refresh token. The cookie is HttpOnly,
// Secure, and SameSite=Strict: page scripts can never read the refresh value,
// only the access token travels in response bodies.
const RefreshCookieName = "refreshToken"

// HTTPController exposes the lifecycle manager over fiber routes. It is a
// thin translation layer: every decision about tokens and account mutations
// lives in the Manager.
type HTTPController struct {
	manager *Manager
	tokens  TokenService
	logger  Logger

	// RedirectBaseURL is where verify-email sends the browser back to.
	RedirectBaseURL string
	// CookiePath scopes the refresh cookie to the auth routes.
	CookiePath string
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func NewHTTPController(manager *Manager, tokens TokenService, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		manager:    manager,
		tokens:     tokens,
		logger:     defLogger{},
		CookiePath: "/auth",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.manager == nil {
		panic("Missing Manager in credentials controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.logger = logger
		}
		return c
	}
}

func WithRedirectBaseURL(url string) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.RedirectBaseURL = url
		return c
	}
}

// RegisterRoutes mounts the auth surface on the given router.
func (h *HTTPController) RegisterRoutes(app fiber.Router) {
	app.Post("/auth/register", h.Register)
	app.Post("/auth/login", h.Login)
	app.Post("/auth/refresh-token", h.Refresh)
	app.Post("/auth/logout", h.Logout)
	app.Get("/auth/verify-email", h.VerifyEmail)
	app.Post("/auth/forgot-password", h.ForgotPassword)
	app.Post("/auth/reset-password", h.ResetPassword)

	app.Get("/auth/me", RequireAuth(h.tokens), h.Me)
	app.Get("/auth/profile", RequireAuth(h.tokens), h.Me)
	app.Get("/auth/admin", RequireAuth(h.tokens), RequireRole(RoleAdmin), h.Admin)
}

func (h *HTTPController) Register(c *fiber.Ctx) error {
	msg := RegisterMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return h.badRequest(c, "Name, email and password are required")
	}

	if _, err := h.manager.Register(c.UserContext(), msg); err != nil {
		return h.renderError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Account registered successfully. Please check your email to verify your account.",
	})
}

func (h *HTTPController) Login(c *fiber.Ctx) error {
	msg := LoginMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return h.badRequest(c, "Email and password are required")
	}

	pair, err := h.manager.Login(c.UserContext(), msg)
	if err != nil {
		return h.renderError(c, err)
	}

	h.setRefreshCookie(c, pair)

	return c.JSON(fiber.Map{
		"access_token": pair.AccessToken,
		"message":      "Login successful",
	})
}

func (h *HTTPController) Refresh(c *fiber.Ctx) error {
	presented := c.Cookies(RefreshCookieName)
	if presented == "" {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"message": "Refresh token missing",
		})
	}

	pair, err := h.manager.Refresh(c.UserContext(), presented)
	if err != nil {
		return h.renderError(c, err)
	}

	h.setRefreshCookie(c, pair)

	return c.JSON(fiber.Map{
		"access_token": pair.AccessToken,
	})
}

func (h *HTTPController) Logout(c *fiber.Ctx) error {
	presented := c.Cookies(RefreshCookieName)
	if presented == "" {
		return c.SendStatus(http.StatusNoContent)
	}

	if err := h.manager.Logout(c.UserContext(), presented); err != nil {
		return h.renderError(c, err)
	}

	h.clearRefreshCookie(c)

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// VerifyEmail is hit from the email link, so the outcome travels as a
// redirect back to the client instead of a JSON body.
func (h *HTTPController) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return h.verifyRedirect(c, "error")
	}

	status, err := h.manager.VerifyEmail(c.UserContext(), token)
	if err != nil {
		if !IsLifecycleError(err) {
			h.logger.Error("email verification failed: %v", err)
		}
		return h.verifyRedirect(c, "error")
	}

	switch status {
	case VerificationAlreadyDone:
		return h.verifyRedirect(c, "already-verified")
	default:
		return h.verifyRedirect(c, "success")
	}
}

func (h *HTTPController) ForgotPassword(c *fiber.Ctx) error {
	msg := ForgotPasswordMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return h.badRequest(c, "Email is required")
	}

	if err := h.manager.ForgotPassword(c.UserContext(), msg); err != nil {
		return h.renderError(c, err)
	}

	// identical response whether or not the account exists
	return c.JSON(fiber.Map{
		"message": "If that email is registered, a password reset link has been sent.",
	})
}

func (h *HTTPController) ResetPassword(c *fiber.Ctx) error {
	msg := ResetPasswordMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return h.badRequest(c, "Token and new password are required")
	}
	if msg.Token == "" {
		msg.Token = c.Query("token")
	}

	if err := h.manager.ResetPassword(c.UserContext(), msg); err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Password has been reset successfully",
	})
}

func (h *HTTPController) Me(c *fiber.Ctx) error {
	claims, ok := ClaimsFromFiber(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"message": "Access denied. No token provided.",
		})
	}

	account, err := h.manager.Account(c.UserContext(), claims.UserID())
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"account": account,
	})
}

func (h *HTTPController) Admin(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome, Admin!",
	})
}

func (h *HTTPController) setRefreshCookie(c *fiber.Ctx, pair *TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Expires:  pair.RefreshExpiresAt,
		Path:     h.CookiePath,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *HTTPController) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		Path:     h.CookiePath,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *HTTPController) verifyRedirect(c *fiber.Ctx, status string) error {
	base := h.RedirectBaseURL
	if base == "" {
		base = "http://localhost:5173"
	}
	return c.Redirect(fmt.Sprintf("%s/verify-email?status=%s", base, status), http.StatusSeeOther)
}

func (h *HTTPController) badRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"message": message,
	})
}

// renderError maps lifecycle errors to caller visible responses. Anything
// outside the taxonomy surfaces as a generic server error: upstream details
// never leak.
func (h *HTTPController) renderError(c *fiber.Ctx, err error) error {
	status, message := errorResponse(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("unhandled lifecycle error: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
	})
}

// IsLifecycleError reports whether the error belongs to the caller visible
// taxonomy rather than an upstream fault.
func IsLifecycleError(err error) bool {
	status, _ := errorResponse(err)
	return status != http.StatusInternalServerError
}

func errorResponse(err error) (int, string) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError, "Server error"
	}

	switch richErr.TextCode {
	case TextCodeInvalidCredentials:
		return http.StatusBadRequest, "Invalid email or password"
	case TextCodeEmailNotVerified:
		return http.StatusForbidden, "Please verify your email before logging in"
	case TextCodeEmailTaken:
		return http.StatusConflict, "Email already registered"
	case TextCodeInvalidToken:
		return http.StatusBadRequest, "Invalid verification token"
	case TextCodeInvalidRefreshToken:
		return http.StatusForbidden, "Invalid or expired refresh token"
	case TextCodeInvalidOrExpired:
		return http.StatusBadRequest, "Invalid or expired token"
	case TextCodeTooManyLoginAttempts:
		return http.StatusTooManyRequests, "Too many login attempts. Please try again later."
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest, richErr.Message
	case goerrors.CategoryConflict:
		return http.StatusConflict, richErr.Message
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized, richErr.Message
	case goerrors.CategoryNotFound:
		return http.StatusNotFound, richErr.Message
	default:
		return http.StatusInternalServerError, "Server error"
	}
}
