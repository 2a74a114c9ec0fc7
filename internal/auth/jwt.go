package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Baalavignesh/DiggerMan/internal/config"
)

var (
	// ErrInvalidToken is returned for tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt secret is required")
)

// Config holds token settings.
type Config struct {
	Secret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-in-production"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"diggerman"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// LoadConfigFromEnv loads token settings from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ViewerClaims identifies the platform user viewing a post.
type ViewerClaims struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
	jwt.RegisteredClaims
}

// Signer issues and validates viewer tokens.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner returns a signer for cfg.
func NewSigner(cfg *Config) (*Signer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl}, nil
}

// GenerateViewerToken creates a token binding userID to postID.
func (s *Signer) GenerateViewerToken(userID, postID string) (string, error) {
	now := time.Now()
	claims := ViewerClaims{
		UserID: userID,
		PostID: postID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken validates a viewer token and returns its claims.
func (s *Signer) ValidateToken(tokenString string) (*ViewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ViewerClaims)
	if !ok || !token.Valid || claims.PostID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
