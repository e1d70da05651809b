package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

const (
	accessTokenType = "access"

	passwordMinLength = 6
	passwordMaxLength = 255
)

type accessTokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type authServiceImpl struct {
	logger             zerolog.Logger
	users              storage.UserRepository
	sessions           storage.RefreshSessionRepository
	jwtIssuer          string
	jwtSigningKey      []byte
	jwtAccessTokenTTL  time.Duration
	jwtRefreshTokenTTL time.Duration
	hashParams         *argon2id.Params
	now                func() time.Time
}

func NewAuthService(
	logger zerolog.Logger,
	users storage.UserRepository,
	sessions storage.RefreshSessionRepository,
	jwtIssuer string,
	jwtSigningKey []byte,
	jwtAccessTokenTTL time.Duration,
	jwtRefreshTokenTTL time.Duration,
) AuthService {
	return &authServiceImpl{
		logger:             logger,
		users:              users,
		sessions:           sessions,
		jwtIssuer:          jwtIssuer,
		jwtSigningKey:      jwtSigningKey,
		jwtAccessTokenTTL:  jwtAccessTokenTTL,
		jwtRefreshTokenTTL: jwtRefreshTokenTTL,
		hashParams:         argon2id.DefaultParams,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	var verr ValidationError
	switch n := utf8.RuneCountInString(params.Username); {
	case n == 0:
		verr.add("username", "this field may not be blank")
	case n > models.UsernameMaxLength:
		verr.add("username", "ensure this field has no more than 150 characters")
	}
	switch n := utf8.RuneCountInString(params.Password); {
	case n < passwordMinLength:
		verr.add("password", "ensure this field has at least 6 characters")
	case n > passwordMaxLength:
		verr.add("password", "ensure this field has no more than 255 characters")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Username:  params.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	passwordHash, err := argon2id.CreateHash(params.Password, s.hashParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}
	user.Password = passwordHash

	err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.logger.Debug().
				Str("username", user.Username).
				Msg("user with this username already exists")
			return nil, ErrUserAlreadyExists
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("registered user")
	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, params.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().
				Str("username", params.Username).
				Msg("user not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("username", params.Username).
			Msg("failed to select user by username")
		return nil, err
	}

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Debug().
			Str("user_id", user.ID).
			Msg("passwords do not match")
		return nil, ErrUserPasswordMismatch
	}

	now := s.now()
	session := &models.RefreshSession{
		UserID:    user.ID,
		ExpiresAt: now.Add(s.jwtRefreshTokenTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	sessionUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate session uuid")
		return nil, err
	}
	session.ID = sessionUUID.String()

	session.RefreshToken, err = s.generateRefreshToken()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate refresh token")
		return nil, err
	}

	err = s.sessions.Create(ctx, session)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert session")
		return nil, err
	}

	accessToken, accessTokenExpiresAt, err := s.generateAccessToken(user.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("session_id", session.ID).
		Msg("logged in")
	return &LoginResult{
		UserID:                user.ID,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	session, err := s.sessions.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().Msg("session not found")
			return nil, ErrSessionNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select session by refresh token")
		return nil, err
	}

	now := s.now()
	if !session.ExpiresAt.After(now) {
		s.logger.Debug().
			Str("session_id", session.ID).
			Time("expires_at", session.ExpiresAt).
			Msg("session expired")

		err = s.sessions.DeleteByToken(ctx, refreshToken)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("session_id", session.ID).
				Msg("failed to delete expired session")
		}
		return nil, ErrSessionExpired
	}

	rotated := *session
	rotated.RefreshToken, err = s.generateRefreshToken()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate refresh token")
		return nil, err
	}
	rotated.ExpiresAt = now.Add(s.jwtRefreshTokenTTL)
	rotated.UpdatedAt = now

	err = s.sessions.Rotate(ctx, refreshToken, &rotated)
	if err != nil {
		// Another refresh with the same token won the race.
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().
				Str("session_id", session.ID).
				Msg("session already rotated")
			return nil, ErrSessionNotFound
		}

		s.logger.Error().
			Err(err).
			Str("session_id", session.ID).
			Msg("failed to update session")
		return nil, err
	}

	accessToken, accessTokenExpiresAt, err := s.generateAccessToken(rotated.UserID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", rotated.UserID).
		Str("session_id", rotated.ID).
		Msg("refreshed session")
	return &LoginResult{
		UserID:                rotated.UserID,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessTokenExpiresAt,
		RefreshToken:          rotated.RefreshToken,
		RefreshTokenExpiresAt: rotated.ExpiresAt,
	}, nil
}

func (s *authServiceImpl) Revoke(ctx context.Context, refreshToken string) error {
	err := s.sessions.DeleteByToken(ctx, refreshToken)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to delete session")
		return err
	}

	s.logger.Info().Msg("revoked refresh token")
	return nil
}

func (s *authServiceImpl) ParseAccessToken(token string) (string, error) {
	claims := &accessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSigningKey, nil
		},
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token is expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != accessTokenType {
		return "", fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (s *authServiceImpl) generateRefreshToken() (string, error) {
	const length = 32
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func (s *authServiceImpl) generateAccessToken(userID string) (string, time.Time, error) {
	tokenUUID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.jwtAccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		Type: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenUUID.String(),
			Issuer:    s.jwtIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(s.jwtSigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
