package auth

import (
	"context"

	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Token kinds carried in the token_use claim.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error)
	ResolveCaller(ctx context.Context, token string) (*coreUser.Identity, error)
}

type RepositoryAPI interface {
	IdentityStore
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
}

// IdentityStore reads the live membership record of a user.
type IdentityStore interface {
	GetIdentity(ctx context.Context, userID int64) (*coreUser.Identity, error)
}

// TokenGeneratorAPI is the credential issuer and verifier.
type TokenGeneratorAPI interface {
	GenerateAccessToken(subject Subject) (string, error)
	GenerateRefreshToken(subject Subject) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// Credentials is what login needs from storage.
type Credentials struct {
	Identity     coreUser.Identity
	Name         string
	Email        string
	PasswordHash string
}

// Subject is the user a token is issued for.
type Subject struct {
	Identity coreUser.Identity
	Email    string
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims carry a snapshot of the membership at issue time. Authorization never
// trusts them; the resolver reloads the user on every request.
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	AccountType string `json:"account_type,omitempty"`
	CompanyID   *int64 `json:"company_id,omitempty"`
	TokenUse    string `json:"token_use"`
	jwt.RegisteredClaims
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
