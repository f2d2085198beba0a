// Package server: session handling. Login verifies the single shared
// credential pair and issues an opaque bearer token kept in the store's
// session set; logout destroys the token. The configured password may be a
// bcrypt hash, plaintext falls back to a constant-time compare.
package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if !s.verifyCredentials(req.Username, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token := uuid.NewString()
	s.store.CreateSession(token)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, ok := extractToken(c); ok {
		s.store.DestroySession(token)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": s.isAuthenticated(c)})
}

func (s *Server) verifyCredentials(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Auth.Username)) != 1 {
		return false
	}
	stored := s.cfg.Auth.Password
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}

// authRequired gates mutation endpoints on an active session token.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.isAuthenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) isAuthenticated(c *gin.Context) bool {
	token, ok := extractToken(c)
	return ok && s.store.Authenticate(token)
}

// extractToken pulls the bearer token from the Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	raw := c.GetHeader("Authorization")
	if raw == "" {
		return "", false
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
