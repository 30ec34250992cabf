package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 30 * 24 * time.Hour

func GenerateJWT(signingKey string, userID uint, admin bool) (string, error) {
	claims := jwt.MapClaims{
		"sub":   fmt.Sprint(userID),
		"admin": admin,
		"exp":   jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
		"iat":   jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(signingKey))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// VerifyJWT validates a token and returns the user ID and admin claim.
func VerifyJWT(signingKey string, tokenString string) (uint, bool, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(
		jwt.WithLeeway(5*time.Minute),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})).
		ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("invalid signing method: %s", token.Header["alg"])
			}
			return []byte(signingKey), nil
		})
	if err != nil {
		return 0, false, err
	}
	if !token.Valid {
		return 0, false, errors.New("invalid token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false, errors.New("token has no expiration")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, false, err
	}
	var userID uint
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return 0, false, fmt.Errorf("invalid subject: %w", err)
	}

	admin, _ := claims["admin"].(bool)

	return userID, admin, nil
}
