package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"citai-analytics-service/internal/auth"
	"citai-analytics-service/internal/store"
)

type contextKey string

const authContextKey contextKey = "authContext"

type AuthContext struct {
	UserID       string
	Email        string
	RestaurantID string
	Role         string
	IsOwner      bool
	Permissions  []string
}

// MemberLookup resolves a user's access to a restaurant.
type MemberLookup interface {
	LookupMember(ctx context.Context, userID, restaurantID string) (store.Member, error)
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

// AuthError carries the HTTP status an authentication failure maps to.
type AuthError struct {
	Status  int
	Message string
	Debug   string
}

func (e *AuthError) Error() string {
	return e.Message
}

func writeAuthError(w http.ResponseWriter, err *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)

	payload := map[string]any{
		"success": false,
		"error":   "UNAUTHORIZED",
		"message": err.Message,
	}
	if os.Getenv("APP_ENV") == "development" && strings.TrimSpace(err.Debug) != "" {
		payload["debug"] = err.Debug
	}

	_ = json.NewEncoder(w).Encode(payload)
}

func requestedRestaurant(r *http.Request, claims *auth.Claims) string {
	if v := strings.TrimSpace(r.Header.Get("X-Restaurant-Id")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("restaurantId")); v != "" {
		return v
	}
	if claims.RestaurantID != nil {
		return strings.TrimSpace(*claims.RestaurantID)
	}
	return ""
}

// Authenticate verifies token and the caller's membership of the restaurant
// the request targets, then checks the staff permission for the path.
func Authenticate(r *http.Request, lookup MemberLookup, jwtSecret string, token string) (*AuthContext, *AuthError) {
	claims, err := auth.VerifyAccessToken(token, jwtSecret)
	if err != nil {
		return nil, &AuthError{Status: http.StatusUnauthorized, Message: "Authorization token required", Debug: err.Error()}
	}

	restaurantID := requestedRestaurant(r, claims)
	if restaurantID == "" {
		return nil, &AuthError{Status: http.StatusBadRequest, Message: "Restaurant context required"}
	}

	member, err := lookup.LookupMember(r.Context(), claims.UserID(), restaurantID)
	switch {
	case errors.Is(err, store.ErrRestaurantNotFound), errors.Is(err, store.ErrNotMember):
		return nil, &AuthError{Status: http.StatusForbidden, Message: "Restaurant access required", Debug: err.Error()}
	case err != nil:
		return nil, &AuthError{Status: http.StatusUnauthorized, Message: "Restaurant access required", Debug: err.Error()}
	}

	if !member.IsOwner {
		if perm := auth.GetPermissionForAPI(r.URL.Path, r.Method); perm != nil && !auth.HasPermission(member.Permissions, *perm) {
			return nil, &AuthError{Status: http.StatusForbidden, Message: "You do not have permission to access this resource"}
		}
	}

	return &AuthContext{
		UserID:       claims.UserID(),
		Email:        claims.Email,
		RestaurantID: restaurantID,
		Role:         member.Role,
		IsOwner:      member.IsOwner,
		Permissions:  member.Permissions,
	}, nil
}

func MerchantAuth(lookup MemberLookup, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			authCtx, authErr := Authenticate(r, lookup, jwtSecret, token)
			if authErr != nil {
				writeAuthError(w, authErr)
				return
			}
			recordTenant(r.Context(), authCtx.RestaurantID)
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}
