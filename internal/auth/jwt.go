package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/warehouse-gin/internal/engine"
)

// 上下文键,中间件写入,控制器读取
const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
	ContextKeyRank   = "rank"
)

// Claims 本地签发的 JWT 声明
// 角色名与等级在登录时固化到令牌,令牌有效期覆盖一个班次
type Claims struct {
	Role string `json:"role"`
	Rank int    `json:"rank"`
	jwt.RegisteredClaims
}

// TokenManager JWT 签发与验证器,HS256 对称密钥
type TokenManager struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewTokenManager 创建 Token 管理器
func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// IssueToken 为操作员签发令牌
func (m *TokenManager) IssueToken(operatorID string, role string, rank int) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		Rank: rank,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken 验证令牌并返回声明
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject in token")
	}

	return claims, nil
}

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(manager *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			c.Abort()
			return
		}

		// 移除 "Bearer " 前缀
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := manager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
			})
			c.Abort()
			return
		}

		// 将操作人信息存储到上下文
		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyRank, claims.Rank)

		c.Next()
	}
}

// ActorFromContext 从请求上下文还原操作人
func ActorFromContext(c *gin.Context) (engine.Actor, bool) {
	userID := c.GetString(ContextKeyUserID)
	if userID == "" {
		return engine.Actor{}, false
	}
	return engine.Actor{
		ID:   userID,
		Role: c.GetString(ContextKeyRole),
		Rank: c.GetInt(ContextKeyRank),
	}, true
}
