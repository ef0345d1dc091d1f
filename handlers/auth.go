package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hounddogai/scan-engine/internal/logger"
	"github.com/hounddogai/scan-engine/services"
	"go.uber.org/zap"
)

// AuthHandler wires the Google Sign-In flow that sets the userID a scan's
// per-user repository ownership checks in handlers/repository.go depend on.
type AuthHandler struct {
	JWTSecret string
}

// NewAuthHandler creates a new authentication handler with the provided dependencies
func NewAuthHandler(jwtSecret string) *AuthHandler {
	return &AuthHandler{
		JWTSecret: jwtSecret,
	}
}

// generateStateToken generates a random state token for OAuth flow
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// HandleGoogleLogin processes Google Sign-In requests
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	log.Info("Handling Google login request")

	authService := services.GetAuthService()

	// Check if it's an initial request or a callback with a code
	code := r.URL.Query().Get("code")
	if code == "" {
		// This is the initial request, redirect to Google OAuth
		state, err := generateStateToken()
		if err != nil {
			log.Error("Failed to generate state token", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// Store state token in session or context for later verification
		// For simplicity, we're using a cookie here, but a more secure method would be recommended
		http.SetCookie(w, &http.Cookie{
			Name:     "oauth_state",
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			MaxAge:   int(time.Now().Add(10 * time.Minute).Unix()),
		})

		// Redirect to Google OAuth consent page
		authURL := authService.GetAuthURL(state)
		http.Redirect(w, r, authURL, http.StatusFound)
		return
	}

	// This is a callback with code, exchange it for token
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		log.Error("Failed to get state token from cookie", zap.Error(err))
		http.Error(w, "Failed to verify state token", http.StatusBadRequest)
		return
	}

	// Verify state token to prevent CSRF
	state := r.URL.Query().Get("state")
	if state == "" || state != stateCookie.Value {
		log.Error("Invalid state token", zap.String("received", state), zap.String("expected", stateCookie.Value))
		http.Error(w, "Invalid state token", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   -1,
	})

	// Exchange code for token
	token, err := authService.ExchangeCodeForToken(r.Context(), code)
	if err != nil {
		log.Error("Failed to exchange code for token", zap.Error(err))
		http.Error(w, "Failed to exchange code", http.StatusInternalServerError)
		return
	}

	// Get user info from Google
	userInfo, err := authService.GetUserInfo(r.Context(), token)
	if err != nil {
		log.Error("Failed to get user info", zap.Error(err))
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	// Create or update user in database
	userID, err := authService.CreateOrUpdateUser(r.Context(), userInfo)
	if err != nil {
		log.Error("Failed to process user info", zap.Error(err))
		http.Error(w, "Failed to process user info", http.StatusInternalServerError)
		return
	}

	// Generate JWT token
	jwtToken, err := authService.GenerateJWT(userID, userInfo.Email)
	if err != nil {
		log.Error("Failed to generate JWT token", zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.Info("Google Sign-In successful", zap.String("user_id", userID))

	// Return JWT token and user info
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": jwtToken,
		"user": map[string]interface{}{
			"id":      userID,
			"email":   userInfo.Email,
			"name":    userInfo.Name,
			"picture": userInfo.Picture,
		},
	})
}

// HandleTokenExchange exchanges a Google token for a backend JWT token
func (h *AuthHandler) HandleTokenExchange(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	log.Info("Handling token exchange request")

	// Parse request body
	var requestBody struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"` // Optional - can be "access_token" or "id_token", defaults to "access_token"
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		log.Error("Failed to parse request body", zap.Error(err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if requestBody.Token == "" {
		log.Warn("Missing token in request")
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	// Default to access_token if not specified
	if requestBody.TokenType == "" {
		requestBody.TokenType = "access_token"
	}

	log.Debug("Received token for exchange",
		zap.String("token_type", requestBody.TokenType),
		zap.String("token_prefix", requestBody.Token[:min(10, len(requestBody.Token))]+"..."))

	// Determine endpoint based on token type
	endpoint := "https://www.googleapis.com/oauth2/v2/userinfo"
	var authHeader string

	if requestBody.TokenType == "id_token" {
		// For ID tokens, we need to verify with Google's token info endpoint
		endpoint = "https://oauth2.googleapis.com/tokeninfo?id_token=" + requestBody.Token
		// No auth header needed for ID token verification
		authHeader = ""
	} else {
		// Standard access token verification
		authHeader = "Bearer " + requestBody.Token
	}

	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	var req *http.Request
	var err error

	if requestBody.TokenType == "id_token" {
		// For ID token, use GET without body
		req, err = http.NewRequest("GET", endpoint, nil)
	} else {
		// For access token, use GET with Authorization header
		req, err = http.NewRequest("GET", endpoint, nil)
		req.Header.Add("Authorization", authHeader)
	}

	if err != nil {
		log.Error("Failed to create request", zap.Error(err))
		http.Error(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Error("Failed to send verification request", zap.Error(err))
		http.Error(w, "Failed to verify token: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Warn("Invalid Google token",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)))

		// Provide more detailed error message based on response
		errorMsg := fmt.Sprintf("Invalid token: Google API responded with status %s", resp.Status)
		if len(bodyBytes) > 0 {
			errorMsg += fmt.Sprintf(" - Details: %s", string(bodyBytes))
		}

		http.Error(w, errorMsg, http.StatusUnauthorized)
		return
	}

	// Parse user info
	var userInfo services.GoogleUserInfo
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		http.Error(w, "Failed to read user info: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Debug("Google userinfo response", zap.String("body", string(bodyBytes)))

	if err := json.Unmarshal(bodyBytes, &userInfo); err != nil {
		log.Error("Failed to parse user info", zap.Error(err), zap.String("body", string(bodyBytes)))
		http.Error(w, "Failed to process user info: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// ID token response has slightly different field names than userinfo endpoint
	if requestBody.TokenType == "id_token" {
		// If using ID token and sub exists but ID doesn't, copy sub to ID
		if userInfo.ID == "" && userInfo.Sub != "" {
			userInfo.ID = userInfo.Sub
		}

		// Handle email verification status
		if userInfo.Email == "" {
			userInfo.Email = userInfo.EmailFromIDToken
		}
	}

	if userInfo.ID == "" || userInfo.Email == "" {
		log.Error("Incomplete user info from Google", zap.Any("userInfo", userInfo))
		http.Error(w, "Incomplete user info received from Google", http.StatusInternalServerError)
		return
	}

	// Get auth service
	authService := services.GetAuthService()

	// Create or update user
	userID, err := authService.CreateOrUpdateUser(r.Context(), &userInfo)
	if err != nil {
		log.Error("Failed to process user", zap.Error(err))
		http.Error(w, "Failed to process user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Generate JWT token
	jwtToken, err := authService.GenerateJWT(userID, userInfo.Email)
	if err != nil {
		log.Error("Failed to generate JWT", zap.Error(err))
		http.Error(w, "Failed to generate token: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Return JWT token
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": jwtToken,
	})
}

// min returns the smaller of x or y
func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}
