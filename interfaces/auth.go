package interfaces

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const claimsKey = "claims"

// Claims is the token payload shared with the login module: {id, rol}.
type Claims struct {
	UserID uint   `json:"id"`
	Role   string `json:"rol"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for id and role.
func IssueToken(secret string, id uint, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: id,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenStr, secret string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *claims, nil
}

// Authenticate enforces bearer JWT tokens. A missing token is a 403 and a
// bad one a 401, matching what the front end already handles.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		parts := strings.Fields(authz)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Acceso denegado. Se requiere un token."})
			return
		}
		claims, err := ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token inválido o expirado."})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles lets the request through only for the given roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := callerFrom(c)
		if _, permitted := allowed[claims.Role]; !ok || !permitted {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "No tienes permiso para realizar esta acción."})
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
