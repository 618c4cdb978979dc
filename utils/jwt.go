package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"filerepo/config"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var ErrJWTSecretMissing = errors.New("jwt secret is not configured")

func jwtSettings() (string, time.Duration, error) {
	if config.AppConfig == nil || config.AppConfig.JWT.Secret == "" {
		return "", 0, ErrJWTSecretMissing
	}
	return config.AppConfig.JWT.Secret, time.Duration(config.AppConfig.JWT.ExpireHours) * time.Hour, nil
}

func GenerateToken(userID uint, role string) (string, error) {
	secret, ttl, err := jwtSettings()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(tokenString string) (*Claims, error) {
	secret, _, err := jwtSettings()
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
