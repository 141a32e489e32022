package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	store      repositories.Store
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repositories.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// RegisterUser registers a buyer or seller account. Sellers get a shop named shopName
// created in the same transaction.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User, shopName string) error {
	if user.Role == "" {
		user.Role = models.RoleBuyer
	}
	if user.Role != models.RoleBuyer && user.Role != models.RoleSeller {
		return fmt.Errorf("%w: %s", ErrRoleForbidden, user.Role)
	}

	if existing, err := s.store.Users().GetByUsername(ctx, user.Username); err == nil && existing != nil {
		return fmt.Errorf("%w: '%s'", ErrUsernameTaken, user.Username)
	}
	if existing, err := s.store.Users().GetByEmail(ctx, user.Email); err == nil && existing != nil {
		return fmt.Errorf("%w: '%s'", ErrEmailTaken, user.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	return s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("%w: %v", ErrUsernameTaken, err)
			}
			return fmt.Errorf("failed to register user: %w", err)
		}
		if user.Role != models.RoleSeller {
			return nil
		}
		if shopName == "" {
			shopName = user.Username
		}
		shop := &models.Shop{OwnerID: user.ID, Name: shopName}
		if err := tx.Shops().Create(ctx, shop); err != nil {
			return err
		}
		user.ShopID = shop.ID
		return tx.Users().SetShop(ctx, user.ID, shop.ID)
	})
}

// EnsureAdmin creates the platform admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.User{Username: username, Email: email, Password: string(hashedPassword), Role: models.RoleAdmin}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	log.Printf("Created admin account %s", email)
	return nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		// Do not reveal whether the username exists.
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"shop_id":  user.ShopID,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// PrincipalFromClaims builds the caller identity carried by a validated token.
func PrincipalFromClaims(claims jwt.MapClaims) Principal {
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	return Principal{
		UserID: str("user_id"),
		Role:   models.Role(str("role")),
		ShopID: str("shop_id"),
	}
}
