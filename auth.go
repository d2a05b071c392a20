package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer      = "arena-server"
	tokenLifetime    = 7 * 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	rateSweepSize    = 1024 // prune expired limiter entries past this many addresses
)

var (
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrRateLimited    = errors.New("too many login attempts, try again later")
	ErrInvalidToken   = errors.New("invalid token")
)

// Account is an authenticated pilot and the token that proves it
type Account struct {
	ID       int64
	Username string
	Token    string
}

// pilotClaims is the JWT payload; the subject is the player id
type pilotClaims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// Auth issues and checks pilot accounts
type Auth struct {
	db     *DB
	secret []byte

	// login attempts per remote address
	rateMu  sync.Mutex
	attempt map[string]*loginWindow
}

type loginWindow struct {
	count   int
	resetAt time.Time
}

// NewAuth creates the account service. The signing key is kept in the
// settings table so tokens survive restarts.
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:      db,
		secret:  signingKey(db),
		attempt: make(map[string]*loginWindow),
	}
}

func signingKey(db *DB) []byte {
	if h := db.GetSetting("jwt_secret"); h != "" {
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b
		}
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("generate signing key: " + err.Error())
	}
	if err := db.SetSetting("jwt_secret", hex.EncodeToString(key)); err != nil {
		log.Printf("auth: could not persist signing key: %v", err)
	}
	return key
}

// validUsername allows letters, digits, '_' and '-'
func validUsername(name string) error {
	if len(name) < minUsernameLen || len(name) > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	for _, r := range name {
		ok := r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("username may only use letters, digits, '_' and '-'")
		}
	}
	return nil
}

// Register creates an account and signs the pilot in
func (a *Auth) Register(username, password string) (Account, error) {
	username = strings.TrimSpace(username)
	if err := validUsername(username); err != nil {
		return Account{}, err
	}
	if len(password) < minPasswordLen {
		return Account{}, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	taken, err := a.db.UsernameExists(username)
	if err != nil {
		log.Printf("auth: username lookup: %v", err)
		return Account{}, errors.New("database error")
	}
	if taken {
		return Account{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Account{}, errors.New("internal error")
	}
	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		log.Printf("auth: create player %s: %v", username, err)
		return Account{}, errors.New("failed to create account")
	}
	return a.issue(id, username)
}

// Login checks a password; attempts are limited per remote address
func (a *Auth) Login(username, password, ip string) (Account, error) {
	if !a.allow(ip, time.Now()) {
		return Account{}, ErrRateLimited
	}

	player, err := a.db.GetPlayerByUsername(strings.TrimSpace(username))
	if err != nil {
		log.Printf("auth: player lookup: %v", err)
		return Account{}, errors.New("database error")
	}
	if player == nil || player.PassHash == "" {
		return Account{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PassHash), []byte(password)); err != nil {
		return Account{}, ErrBadCredentials
	}
	return a.issue(player.ID, player.Username)
}

// ValidateToken resumes an account from a token issued by this server
func (a *Auth) ValidateToken(token string) (Account, error) {
	var claims pilotClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.Username == "" {
		return Account{}, ErrInvalidToken
	}
	return Account{ID: id, Username: claims.Username, Token: token}, nil
}

func (a *Auth) issue(id int64, username string) (Account, error) {
	now := time.Now()
	claims := pilotClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Account{}, errors.New("internal error")
	}
	return Account{ID: id, Username: username, Token: signed}, nil
}

// allow counts a login attempt from ip and reports whether it may proceed
func (a *Auth) allow(ip string, now time.Time) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	if len(a.attempt) > rateSweepSize {
		for k, w := range a.attempt {
			if now.After(w.resetAt) {
				delete(a.attempt, k)
			}
		}
	}
	w, ok := a.attempt[ip]
	if !ok || now.After(w.resetAt) {
		a.attempt[ip] = &loginWindow{count: 1, resetAt: now.Add(loginRateWindow)}
		return true
	}
	w.count++
	return w.count <= maxLoginAttempts
}

// GenerateGuestName picks a display name for a pilot without an account
func GenerateGuestName() string {
	b := make([]byte, 3)
	rand.Read(b)
	return "Guest_" + hex.EncodeToString(b)
}
