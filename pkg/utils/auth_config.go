package utils

import (
	"os"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration

	AdminUser string
	// AdminPasswordHash is a bcrypt hash. When unset, AdminPassword is
	// hashed at startup instead (dev convenience only).
	AdminPasswordHash string
	AdminPassword     string
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("COMICHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("COMICHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "comichub"
	}

	user := os.Getenv("COMICHUB_ADMIN_USER")
	if user == "" {
		user = "admin"
	}

	password := os.Getenv("COMICHUB_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}

	return AuthConfig{
		JWTSecret:         secret,
		JWTIssuer:         issuer,
		JWTDuration:       envDuration("COMICHUB_JWT_TTL", 24*time.Hour),
		AdminUser:         user,
		AdminPasswordHash: os.Getenv("COMICHUB_ADMIN_PASSWORD_HASH"),
		AdminPassword:     password,
	}
}
