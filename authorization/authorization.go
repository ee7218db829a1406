package authorization

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/cristalhq/jwt/v4"
)

var jwtKey = []byte(os.Getenv("SECRET_KEY"))

var verifier, _ = jwt.NewVerifierHS(jwt.HS256, jwtKey)

const StaffRole = "Staff"

func parseToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse([]byte(tokenString), verifier)
	if err != nil {
		log.Println(err)
		return nil, err
	}
	return token, nil
}

func extractClaims(token *jwt.Token) map[string]string {
	var claims map[string]string

	err := jwt.ParseClaims(token.Bytes(), verifier, &claims)
	if err != nil {
		log.Println(err)
	}

	return claims
}

func ExtractUserType(r *http.Request) (string, error) {
	bearer := r.Header.Get("Authorization")
	if bearer == "" {
		return "Unauthenticated", nil
	}

	bearerToken := strings.Split(bearer, "Bearer ")
	if len(bearerToken) != 2 {
		return "", errors.New("invalid token format")
	}

	token, err := parseToken(bearerToken[1])
	if err != nil {
		return "", err
	}

	claims := extractClaims(token)
	return claims["userType"], nil
}

func ExtractUserID(r *http.Request) (string, error) {
	bearer := r.Header.Get("Authorization")
	if bearer == "" {
		return "", errors.New("missing token")
	}

	bearerToken := strings.Split(bearer, "Bearer ")
	if len(bearerToken) != 2 {
		return "", errors.New("invalid token format")
	}

	token, err := parseToken(bearerToken[1])
	if err != nil {
		return "", err
	}

	claims := extractClaims(token)
	return claims["userId"], nil
}

// StaffOnly guards back-office routes: status changes, cottage CRUD, the
// dashboard, lead processing.
func StaffOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		userType, err := ExtractUserType(h)
		if err != nil {
			http.Error(rw, "Token is invalid", http.StatusUnauthorized)
			return
		}
		if userType != StaffRole {
			http.Error(rw, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, h)
	})
}
