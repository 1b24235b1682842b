// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"

	"beef-back/internal/apperrors"
	"beef-back/internal/middleware"
	"beef-back/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
	Name     string `json:"name" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse keeps token null on failure.
type LoginResponse struct {
	Token   *string `json:"token"`
	Message string  `json:"message"`
}

const (
	msgLoginSuccess = "로그인 성공"
	msgLoginFailed  = "이메일 또는 비밀번호가 잘못되었습니다."
)

// Register creates an account and responds with its id.
func Register(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := members.Register(c.Request.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicateEmail) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
			return
		}

		c.JSON(http.StatusOK, id)
	}
}

func Login(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, LoginResponse{Message: err.Error()})
			return
		}

		token, err := members.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, LoginResponse{Message: msgLoginFailed})
				return
			}
			c.JSON(statusFor(err), LoginResponse{Message: publicMessage(err)})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{Token: &token, Message: msgLoginSuccess})
	}
}

// GetProfile returns the caller's account.
func GetProfile(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, err := members.Profile(c.Request.Context(), middleware.IdentityFrom(c))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
			return
		}
		c.JSON(http.StatusOK, member)
	}
}
