package auth

import (
	"context"
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
)

const (
	claimsContextKey = "claims"
	actorContextKey  = "actor"
)

func unauthenticated(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: message,
		Code:  "UNAUTHENTICATED",
	})
}

// JWTMiddleware validates the bearer token and stores its claims on the context.
func JWTMiddleware(jwtService *JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthenticated("missing or invalid token")
		},
	})
}

// UserFinder resolves the stored user behind a token subject.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RequireActor rejects revoked tokens and tokens whose user no longer exists or
// has been deactivated. The actor handed to handlers is built from the stored
// user, so role changes apply immediately. It must run after JWTMiddleware.
func RequireActor(users UserFinder, store TokenStoreInterface, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			claims, ok := ClaimsFrom(c)
			if !ok {
				return unauthenticated("missing or invalid token")
			}

			revoked, err := store.IsAccessTokenBlacklisted(ctx, claims.ID)
			if err != nil {
				// Fail open when the blacklist is unreachable.
				log.Warn("token blacklist lookup failed", zap.String("jti", claims.ID), zap.Error(err))
			}
			if revoked {
				return unauthenticated("token has been revoked")
			}

			user, err := users.FindByID(ctx, claims.UserID)
			if errors.Is(err, apperrors.ErrNotFound) {
				return unauthenticated("user not found")
			}
			if err != nil {
				log.Error("resolve token subject", zap.String("user_id", claims.UserID), zap.Error(err))
				httpErr := apperrors.MapErrorToHTTP(err)
				if apperrors.Retryable(err) {
					c.Response().Header().Set("Retry-After", "1")
				}
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			if !user.Active {
				return unauthenticated("user is inactive")
			}

			WithActor(c, user.Actor())
			return next(c)
		}
	}
}

// ClaimsFrom returns the validated token claims of the request.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// ActorFrom returns the authenticated actor of the request.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	actor, ok := c.Get(actorContextKey).(model.Actor)
	return actor, ok
}

// WithActor stores actor on the context.
func WithActor(c echo.Context, actor model.Actor) {
	c.Set(actorContextKey, actor)
}
