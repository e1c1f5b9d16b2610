package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxPhotoSize = 5 << 20

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	objects        storage.ObjectStore
	publisher      events.Publisher
}

// NewAuthHandler creates a new authentication handler. objects may be nil,
// in which case photo uploads are refused.
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, objects storage.ObjectStore, publisher events.Publisher) *AuthHandler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		objects:        objects,
		publisher:      publisher,
	}
}

// SignIn handles email and password sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Error("Failed to look up user")
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	session, err := h.session(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	writeJSON(w, http.StatusOK, session)
}

// SignUp creates an account and signs it in
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req.Email = normalizeEmail(req.Email)
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateDisplayName(req.DisplayName); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err := h.userCollection.FindUserByEmail(r.Context(), req.Email)
	if err == nil {
		http.Error(w, "Email already exists", http.StatusConflict)
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		writeError(w, r, "sign up", err)
		return
	}

	existing, err := h.userCollection.FindUsers(r.Context(), bson.M{})
	if err != nil {
		writeError(w, r, "sign up", err)
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Email:        req.Email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: passwordHash,
		Role:         models.RoleStaff,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(existing) == 0 {
		user.Role = models.RoleAdmin
		user.Bootstrap = true
	}

	err = h.userCollection.InsertUser(r.Context(), user)
	if errors.Is(err, db.ErrDuplicate) && user.Bootstrap {
		// Another sign-up took the first-admin slot in the meantime.
		user.Role = models.RoleStaff
		user.Bootstrap = false
		err = h.userCollection.InsertUser(r.Context(), user)
	}
	if errors.Is(err, db.ErrDuplicate) {
		http.Error(w, "Email already exists", http.StatusConflict)
		return
	}
	if err != nil {
		writeError(w, r, "sign up", err)
		return
	}

	session, err := h.session(r.Context(), &user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("Account created")
	writeJSON(w, http.StatusCreated, session)
}

// Refresh exchanges a refresh token for a new session. Each exchange issues
// a new refresh token and the old one stops working.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		http.Error(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	userID, secret, err := h.authService.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) && !errors.Is(err, db.ErrInvalidID) {
			log.WithError(err).Error("Failed to look up user")
		}
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}
	if user.RefreshTokenHash == "" || user.RefreshExpiresAt == nil ||
		time.Now().After(*user.RefreshExpiresAt) ||
		!h.authService.CheckPassword(secret, user.RefreshTokenHash) {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	session, err := h.session(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// session signs an access token and stores a fresh refresh token for user.
func (h *AuthHandler) session(ctx context.Context, user *models.User) (models.SessionResponse, error) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return models.SessionResponse{}, errors.New("Failed to generate token")
	}
	refreshToken, hash, err := h.authService.NewRefreshToken(user.ID.Hex())
	if err != nil {
		return models.SessionResponse{}, errors.New("Failed to generate refresh token")
	}
	expiresAt := time.Now().Add(auth.RefreshTokenTTL)
	if err := h.userCollection.SetRefreshToken(ctx, user.ID.Hex(), hash, expiresAt); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Error("Failed to store refresh token")
		return models.SessionResponse{}, errors.New("Failed to store refresh token")
	}
	user.RefreshTokenHash = hash
	user.RefreshExpiresAt = &expiresAt
	return models.SessionResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	}, nil
}

// currentUser loads the signed-in user, writing an error response when it
// cannot.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil, false
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return nil, false
		}
		writeError(w, r, "load profile", err)
		return nil, false
	}
	return user, true
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile changes the current user's display name
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName *string `json:"displayName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.DisplayName == nil {
		http.Error(w, db.ErrNoFields.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateDisplayName(*req.DisplayName); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	user.DisplayName = strings.TrimSpace(*req.DisplayName)
	if err := h.userCollection.UpdateUser(r.Context(), user.ID.Hex(), *user); err != nil {
		writeError(w, r, "update profile", err)
		return
	}

	writeMessage(w, http.StatusOK, "Profile updated successfully")
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(req.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	newPasswordHash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(r.Context(), user.ID.Hex(), *user); err != nil {
		writeError(w, r, "change password", err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}

// UploadPhoto stores the multipart "photo" file as the user's avatar and
// saves its URL on the profile.
func (h *AuthHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		http.Error(w, storage.ErrNotConfigured.Error(), http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "Photo must be a multipart upload under 5MB", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "photo must be an image", http.StatusBadRequest)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	uid := user.ID.Hex()
	url, err := h.objects.Upload(r.Context(), storage.ProfilePictureKey(uid), file, header.Size, contentType)
	if err != nil {
		writeError(w, r, "upload photo", err)
		return
	}

	user.PhotoURL = url
	if err := h.userCollection.UpdateUser(r.Context(), uid, *user); err != nil {
		writeError(w, r, "upload photo", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"photoURL": url})
}

// ListUsers returns every account
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userCollection.FindUsers(r.Context(), bson.M{})
	if err != nil {
		writeError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateUser changes another account's role or active flag
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req models.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Role == nil && req.IsActive == nil {
		http.Error(w, db.ErrNoFields.Error(), http.StatusBadRequest)
		return
	}
	if req.Role != nil && !models.IsValidRole(*req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "update user", err)
		return
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
		if !user.IsActive {
			user.RevokeRefreshToken()
		}
	}

	if err := h.userCollection.UpdateUser(r.Context(), id, *user); err != nil {
		writeError(w, r, "update user", err)
		return
	}
	publishChange(r, h.publisher, db.UsersCollection, events.Updated, id)
	writeMessage(w, http.StatusOK, "User updated successfully")
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok && claims.UserID == id {
		http.Error(w, "Cannot delete your own account", http.StatusBadRequest)
		return
	}

	if err := h.userCollection.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, "delete user", err)
		return
	}
	publishChange(r, h.publisher, db.UsersCollection, events.Deleted, id)
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
