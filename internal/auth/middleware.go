package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	// CookieName is the HTTP-only cookie the account service sets at login.
	CookieName = "token"
)

// Authenticate accepts an HS256 bearer token or the login cookie and stores
// the resulting Principal on the gin context.
func Authenticate(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			if cookie, err := c.Cookie(CookieName); err == nil {
				tokenStr = cookie
			}
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		p, err := PrincipalFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Access Denied"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}

// RequireProfessor rejects callers that are not professors.
func RequireProfessor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ProfessorFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Access Denied"})
			return
		}
		c.Next()
	}
}

// RequireStudent rejects callers that are not students.
func RequireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := StudentFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Access Denied"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// ProfessorFrom returns the principal when it is a professor.
func ProfessorFrom(c *gin.Context) (Professor, bool) {
	p, _ := PrincipalFrom(c)
	prof, ok := p.(Professor)
	return prof, ok
}

// StudentFrom returns the principal when it is a student.
func StudentFrom(c *gin.Context) (Student, bool) {
	p, _ := PrincipalFrom(c)
	st, ok := p.(Student)
	return st, ok
}
