// Package authorization provides JWT-backed accounts: registration, login
// and the middleware the rest of the API uses to identify callers.
package authorization

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	identityKey      = "user_id"
	emailKey         = "email"
	roleKey          = "role"
	loginIdentityKey = "authorization.login_identity"
	defaultTimeout   = 7 * 24 * time.Hour
)

var (
	ErrEmailTaken   = errors.New("authorization: user already exists with this email")
	ErrWeakPassword = errors.New("authorization: password must be at least 6 characters")
)

// Module wires together the JWT middleware and backing services.
type Module struct {
	db            *gorm.DB
	userStore     *UserStore
	jwtMiddleware *jwt.GinJWTMiddleware
	captcha       *CaptchaStore
}

// RegisterRoutes bootstraps the authentication endpoints under /api/auth.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		return nil, errors.New("authorization: DATABASE_DSN environment variable is required")
	}

	driver := strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))
	if driver == "" {
		driver = inferDriverFromDSN(dsn)
		if driver == "" {
			return nil, errors.New("authorization: DATABASE_DRIVER environment variable is required when DSN does not contain a scheme")
		}
	}

	db, err := openDatabase(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("authorization: migrate models: %w", err)
	}

	userStore := &UserStore{db: db}
	authService := &AuthService{users: userStore}

	var captchaStore *CaptchaStore
	if strings.EqualFold(strings.TrimSpace(os.Getenv("CAPTCHA_ENABLED")), "true") {
		captchaStore = NewCaptchaStoreFromEnv()
	}

	middleware, err := buildJWTMiddleware(authService)
	if err != nil {
		return nil, err
	}

	authGroup := router.Group("/api/auth")

	authGroup.GET("/captcha", func(c *gin.Context) {
		if captchaStore == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "captcha is not enabled"})
			return
		}
		challenge := captchaStore.Issue()
		c.JSON(http.StatusOK, gin.H{
			"captcha_id": challenge.ID,
			"image":      challenge.ImageBase64,
			"expires_at": challenge.ExpiresAt.UTC(),
		})
	})

	authGroup.POST("/register", func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
			return
		}

		if captchaStore != nil && !captchaStore.Verify(req.CaptchaID, req.CaptchaAnswer) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captcha"})
			return
		}

		ctx := c.Request.Context()
		user, err := authService.Register(ctx, req.Name, req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrMissingLoginValues):
				c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and password are required"})
			case errors.Is(err, ErrWeakPassword):
				c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
			case errors.Is(err, ErrEmailTaken):
				c.JSON(http.StatusConflict, gin.H{"error": "user already exists with this email"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
			}
			return
		}

		token, expire, err := middleware.TokenGenerator(&AuthenticatedUser{ID: user.ID, Email: user.Email, Role: user.Role})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token":  token,
			"expire": expire,
			"user":   buildUserPayload(user),
		})
	})

	authGroup.POST("/login", func(c *gin.Context) {
		if captchaStore != nil {
			var probe struct {
				CaptchaID     string `json:"captcha_id"`
				CaptchaAnswer string `json:"captcha_answer"`
			}
			if err := c.ShouldBindBodyWithJSON(&probe); err != nil || !captchaStore.Verify(probe.CaptchaID, probe.CaptchaAnswer) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captcha"})
				return
			}
		}
		middleware.LoginHandler(c)
	})
	authGroup.POST("/refresh", middleware.RefreshHandler)

	secured := authGroup.Group("")
	secured.Use(middleware.MiddlewareFunc())
	secured.GET("/me", func(c *gin.Context) {
		identity, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := userStore.FindByID(c.Request.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": buildUserPayload(user)})
	})

	return &Module{db: db, userStore: userStore, jwtMiddleware: middleware, captcha: captchaStore}, nil
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }})
	case "sqlite", "sqlite3":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }})
	default:
		return nil, fmt.Errorf("authorization: unsupported database driver %q", driver)
	}
}

func inferDriverFromDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite://"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), lower == ":memory:":
		return "sqlite"
	default:
		return ""
	}
}

func buildJWTMiddleware(service *AuthService) (*jwt.GinJWTMiddleware, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, errors.New("authorization: JWT_SECRET environment variable is required")
	}

	return jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "modelhub",
		Key:         []byte(secret),
		Timeout:     defaultTimeout,
		MaxRefresh:  defaultTimeout,
		IdentityKey: identityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if user, ok := data.(*AuthenticatedUser); ok {
				return jwt.MapClaims{
					identityKey: user.ID,
					emailKey:    user.Email,
					roleKey:     user.Role,
				}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			claims := jwt.ExtractClaims(c)
			email, _ := claims[emailKey].(string)
			role, _ := claims[roleKey].(string)
			return &AuthenticatedUser{ID: extractUserID(claims), Email: email, Role: role}
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var req LoginRequest
			if err := c.ShouldBindBodyWithJSON(&req); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}
			identity, err := service.Authenticate(c.Request.Context(), req.Email, req.Password)
			if err != nil {
				return nil, err
			}
			// LoginResponse runs before any claims land in the context,
			// so the identity is stashed here for it.
			c.Set(loginIdentityKey, identity)
			return identity, nil
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			user, ok := data.(*AuthenticatedUser)
			return ok && user.ID != 0
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, gin.H{"error": message})
		},
		LoginResponse: func(c *gin.Context, code int, token string, expire time.Time) {
			response := gin.H{"token": token, "expire": expire}
			if value, ok := c.Get(loginIdentityKey); ok {
				if identity, ok := value.(*AuthenticatedUser); ok {
					if user, err := service.users.FindByID(c.Request.Context(), identity.ID); err == nil {
						response["user"] = buildUserPayload(user)
					}
				}
			}
			c.JSON(code, response)
		},
		TokenLookup:   "header: Authorization, cookie: jwt, cookie: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
}

// LoginRequest represents the expected payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest captures the payload for user registration.
type RegisterRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

// AuthenticatedUser is the minimal identity stored inside JWT claims.
type AuthenticatedUser struct {
	ID    uint64
	Email string
	Role  string
}

// AuthService handles authentication concerns.
type AuthService struct {
	users *UserStore
}

// Authenticate validates the given credentials and returns an authenticated
// user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthenticatedUser, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, jwt.ErrMissingLoginValues
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jwt.ErrFailedAuthentication
		}
		return nil, fmt.Errorf("authorization: authenticate user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, jwt.ErrFailedAuthentication
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		log.Printf("authorization: record last login for %d: %v", user.ID, err)
	}

	return &AuthenticatedUser{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Register creates a new user with the provided credentials. New accounts
// always get the plain user role.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if name == "" || email == "" || password == "" {
		return nil, jwt.ErrMissingLoginValues
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("authorization: check existing email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("authorization: hash password: %w", err)
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("authorization: create user: %w", err)
	}

	return user, nil
}

// UserStore provides data access helpers backed by GORM.
type UserStore struct {
	db *gorm.DB
}

// FindByID loads a user by primary key.
func (s *UserStore) FindByID(ctx context.Context, id uint64) (*User, error) {
	if s == nil {
		return nil, errors.New("authorization: user store not initialized")
	}
	var user User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads a user by unique email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// TouchLastLogin stamps the user's last successful login time.
func (s *UserStore) TouchLastLogin(ctx context.Context, id uint64) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login_at", &now).Error
}

// User represents an application account.
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Name         string `gorm:"size:128;not null"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:32;not null;default:'user'"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func buildUserPayload(user *User) gin.H {
	if user == nil {
		return gin.H{}
	}
	return gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}

func extractUserID(claims jwt.MapClaims) uint64 {
	if claims == nil {
		return 0
	}
	idValue, ok := claims[identityKey]
	if !ok {
		return 0
	}

	switch v := idValue.(type) {
	case float64:
		return uint64(v)
	case int64:
		return uint64(v)
	case uint64:
		return v
	case int:
		return uint64(v)
	case uint:
		return uint64(v)
	}
	return 0
}
