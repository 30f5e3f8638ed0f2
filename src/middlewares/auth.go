package middlewares

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"guilance/src/repositories"
	"guilance/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// AuthMiddleware accepts HS256 bearer tokens whose subject is a user id and loads that user.
// The handler context gets "id" and "email".
func AuthMiddleware(secret []byte, users repositories.UserRepository) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.GetHeader("Authorization")
		reqToken, ok := strings.CutPrefix(bearerToken, "Bearer ")
		if !ok || strings.TrimSpace(reqToken) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !tkn.Valid {
			zap.L().Debug("token rejected", zap.Error(err))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || uid == 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}
		user, err := users.FindByID(ctx.Request.Context(), uint(uid))
		if errors.Is(err, repositories.ErrNotFound) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		if err != nil {
			zap.L().Error("failed to load user", zap.Uint64("user_id", uid), zap.Error(err))
			ctx.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if !user.IsActive {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "inactive user"})
			return
		}
		ctx.Set("id", user.ID)
		ctx.Set("email", user.Email)
		ctx.Next()
	}
}
