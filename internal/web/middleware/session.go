package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const (
	sessionCookieName = "face_attendance_session"
	defaultSessionTTL = 24 * time.Hour
	cleanupInterval   = time.Hour
	repoTimeout       = 5 * time.Second
)

// Session represents an authenticated employee session
type Session struct {
	ID         string
	EmployeeID string
	Role       database.Role
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// IsAdmin reports whether the session belongs to an administrator
func (s *Session) IsAdmin() bool {
	return s.Role == database.RoleAdmin
}

// SessionManager handles session creation and validation. Sessions are
// cached in memory and, when a repository is set, persisted so they
// survive restarts.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	sessions map[string]*Session
	mu       sync.RWMutex
	repo     database.SessionRepository
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a new session manager and starts the expiry sweeper.
// repo may be nil.
func NewSessionManager(secret string, ttl time.Duration, repo database.SessionRepository) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		log.Println("WEB_SESSION_SECRET is not set, using the development secret")
		secret = "face-attendance-dev-secret-change-in-production"
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: make(map[string]*Session),
		repo:     repo,
		stop:     make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// Stop ends the expiry sweeper
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.cleanup()
		}
	}
}

// cleanup drops expired sessions from memory and the repository
func (sm *SessionManager) cleanup() {
	now := time.Now()
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	if sm.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	n, err := sm.repo.DeleteExpired(ctx)
	if err != nil {
		log.Printf("Session cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Session cleanup removed %d expired sessions", n)
	}
}

// CreateSession creates a new session for an employee
func (sm *SessionManager) CreateSession(ctx context.Context, employeeID string, role database.Role) (*Session, error) {
	// Generate session ID
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	now := time.Now()
	session := &Session{
		ID:         base64.URLEncoding.EncodeToString(idBytes),
		EmployeeID: employeeID,
		Role:       role,
		CreatedAt:  now,
		ExpiresAt:  now.Add(sm.ttl),
	}

	if sm.repo != nil {
		err := sm.repo.Save(ctx, database.StoredSession{
			ID:         session.ID,
			EmployeeID: session.EmployeeID,
			Role:       session.Role,
			CreatedAt:  session.CreatedAt,
			ExpiresAt:  session.ExpiresAt,
		})
		if err != nil {
			return nil, err
		}
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session, nil
}

// GetSession retrieves an unexpired session by ID
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		log.Printf("Session lookup failed: %v", err)
		return nil
	}
	if stored == nil {
		return nil
	}
	session = &Session{
		ID:         stored.ID,
		EmployeeID: stored.EmployeeID,
		Role:       stored.Role,
		CreatedAt:  stored.CreatedAt,
		ExpiresAt:  stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			log.Printf("Session delete failed: %v", err)
		}
	}
}

// SetSessionCookie sets the signed session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	// Sign the session ID
	signature := sm.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sm.ttl.Seconds()),
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the cookie or a Bearer token
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	// Try cookie first
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		parts := strings.SplitN(cookie.Value, ".", 2)
		if len(parts) == 2 && sm.verifySignature(parts[0], parts[1]) {
			if session := sm.GetSession(r.Context(), parts[0]); session != nil {
				return session
			}
		}
	}

	// Try Authorization header
	authHeader := r.Header.Get("Authorization")
	if sessionID, ok := strings.CutPrefix(authHeader, "Bearer "); ok && sessionID != "" {
		if session := sm.GetSession(r.Context(), sessionID); session != nil {
			return session
		}
	}

	return nil
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SessionData is the client-visible part of a session
type SessionData struct {
	SessionID  string `json:"session_id"`
	EmployeeID string `json:"employee_id"`
	Role       string `json:"role"`
	ExpiresAt  string `json:"expires_at"`
}

// ToJSON returns the session data for JSON response
func (s *Session) ToJSON() SessionData {
	return SessionData{
		SessionID:  s.ID,
		EmployeeID: s.EmployeeID,
		Role:       string(s.Role),
		ExpiresAt:  s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// MarshalJSON implements json.Marshaler
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
