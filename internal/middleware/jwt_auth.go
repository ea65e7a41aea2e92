package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"boards_catalog_v1/internal/model"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	Issuer         string        // 签发者，为空时不校验
	AccessTokenTTL time.Duration // 仅用于生成开发 token
}

// ==================== Claims 定义 ====================

// UserClaims 用户声明，sub 为用户 UUID
type UserClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var (
	errInvalidToken   = errors.New("invalid token")
	errInvalidSubject = errors.New("token subject is not a user id")
)

// Authenticator 校验 Bearer Token 并构造请求的调用者
type Authenticator struct {
	cfg JWTConfig
}

// NewAuthenticator 创建认证器
func NewAuthenticator(cfg JWTConfig) *Authenticator {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	return &Authenticator{cfg: cfg}
}

// ==================== Token 生成与解析 ====================

// GenerateAccessToken 生成 Access Token
func (a *Authenticator) GenerateAccessToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.AccessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.SecretKey))
}

// ParseToken 解析并校验 Token
func (a *Authenticator) ParseToken(tokenString string) (*UserClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	if !model.IsUUID(claims.Subject) {
		return nil, errInvalidSubject
	}
	return claims, nil
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyPrincipal = "principal"
)

// Required 必须登录，否则 401
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

// Optional 可选认证，是否登录由后续 action 判断
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		a.authenticate(c)
		c.Next()
	}
}

// authenticate 解析 Authorization 头，成功时注入 Principal
func (a *Authenticator) authenticate(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}

	claims, err := a.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return false
	}

	p := &model.Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if p.Role == "" {
		p.Role = model.RoleAuthenticated
	}

	c.Set(ContextKeyPrincipal, p)
	return true
}

// ==================== 辅助函数 ====================

// GetPrincipal 从 gin.Context 获取调用者，未登录返回 nil
func GetPrincipal(c *gin.Context) *model.Principal {
	if v, exists := c.Get(ContextKeyPrincipal); exists {
		if p, ok := v.(*model.Principal); ok {
			return p
		}
	}
	return nil
}
