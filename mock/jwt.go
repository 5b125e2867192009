package mock

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

// createJWT creates a signed JWT for subject with the given type and expiry
func (s *ChatService) createJWT(subject, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.Issuer,
		"sub": subject,
		"exp": now.Add(expiry).Unix(),
		"iat": now.Unix(),
		"jti": uuid.New().String(),
		"typ": tokenType,
		"gen": s.generation.Load(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.PrivateKey)
}

// verifyJWT validates signature, expiry and type; access tokens issued before the last ExpireAccessTokens are rejected
func (s *ChatService) verifyJWT(raw, tokenType string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return &s.PrivateKey.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != tokenType {
		return nil, fmt.Errorf("expected %v token, but had %v", tokenType, typ)
	}
	if tokenType == accessTokenType {
		if gen, _ := claims["gen"].(float64); int64(gen) < s.generation.Load() {
			return nil, fmt.Errorf("token was invalidated")
		}
	}
	return claims, nil
}

func (s *ChatService) issueTokens(subject string) (map[string]any, error) {
	accessToken, err := s.createJWT(subject, accessTokenType, s.AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.createJWT(subject, refreshTokenType, s.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
	}, nil
}
