package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/tgienger/planx/internal/auth"
	"github.com/tgienger/planx/internal/db"
	planxmail "github.com/tgienger/planx/internal/mail"
	"github.com/tgienger/planx/internal/models"
)

type registerRequest struct {
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Bio         string `json:"bio"`
	UserType    string `json:"userType"`
	SectionID   *int64 `json:"sectionID"`
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" {
		writeMessage(w, http.StatusBadRequest, "userName is required")
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if msg := auth.PasswordProblem(req.Password); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	if strings.EqualFold(strings.TrimSpace(req.UserType), models.AdminUserType) {
		writeMessage(w, http.StatusForbidden, "Only an admin can grant the Admin user type")
		return
	}
	if req.SectionID != nil && !s.sectionExists(w, r, *req.SectionID) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	user, err := s.DB.CreateUser(r.Context(), &models.User{
		UserName:     req.UserName,
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		Bio:          req.Bio,
		UserType:     strings.TrimSpace(req.UserType),
		SectionID:    req.SectionID,
	})
	if err != nil {
		s.fail(w, r, err, "Email is already registered")
		return
	}

	s.sendLater(planxmail.Welcome(user.Email, user.UserName))
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.DB.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if errors.Is(err, db.ErrNotFound) || (err == nil && !auth.CheckPassword(req.Password, user.PasswordHash)) {
		writeMessage(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	token, err := s.Auth.GenerateToken(user)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.Auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", Token: token, User: user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Logged out")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	user, err := s.DB.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.fail(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.DB.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := s.DB.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	UserName    *string `json:"userName"`
	PhoneNumber *string `json:"phoneNumber"`
	Bio         *string `json:"bio"`
	UserType    *string `json:"userType"`
	SectionID   *int64  `json:"sectionID"`
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	admin, ok := s.mayManageUser(w, r, id)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserType != nil && !admin {
		writeMessage(w, http.StatusForbidden, "Only an admin can change userType")
		return
	}
	if req.UserName != nil && strings.TrimSpace(*req.UserName) == "" {
		writeMessage(w, http.StatusBadRequest, "userName cannot be empty")
		return
	}
	if req.SectionID != nil && !s.sectionExists(w, r, *req.SectionID) {
		return
	}

	user, err := s.DB.UpdateUser(r.Context(), id, db.UserUpdate{
		UserName:    req.UserName,
		PhoneNumber: req.PhoneNumber,
		Bio:         req.Bio,
		UserType:    req.UserType,
		SectionID:   req.SectionID,
	})
	if err != nil {
		s.fail(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.mayManageUser(w, r, id); !ok {
		return
	}
	if err := s.DB.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, r, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

type changePasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.OTP == "" || req.NewPassword == "" {
		writeMessage(w, http.StatusBadRequest, "email, otp and newPassword are required")
		return
	}
	if msg := auth.PasswordProblem(req.NewPassword); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	user, err := s.DB.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.fail(w, r, err, "User not found.")
		return
	}
	if !s.checkOTP(w, r, user, req.OTP, "Invalid or expired OTP.") {
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if err := s.DB.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.fail(w, r, err, "User not found.")
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (s *Server) otpValid(u *models.User, otp string) bool {
	if u.OTP == "" || u.OTPExpiresAt == nil || !s.now().Before(*u.OTPExpiresAt) {
		return false
	}
	if u.OTPAttempts >= db.MaxOTPAttempts {
		return false
	}
	return planxmail.OTPEqual(u.OTP, strings.TrimSpace(otp))
}

// checkOTP answers 400 with msg and counts the miss when otp does not match
// the user's pending one
func (s *Server) checkOTP(w http.ResponseWriter, r *http.Request, u *models.User, otp, msg string) bool {
	if s.otpValid(u, otp) {
		return true
	}
	if u.OTP != "" {
		if err := s.DB.RecordOTPFailure(r.Context(), u.ID); err != nil {
			s.fail(w, r, err, "User not found.")
			return false
		}
	}
	writeMessage(w, http.StatusBadRequest, msg)
	return false
}

// mayManageUser reports whether the caller is an admin, answering 403
// itself unless the caller is an admin or the user with the given id.
// The caller's type comes from the database, not the token.
func (s *Server) mayManageUser(w http.ResponseWriter, r *http.Request, id int64) (bool, bool) {
	caller, err := s.DB.GetUser(r.Context(), callerID(r))
	if errors.Is(err, db.ErrNotFound) {
		writeMessage(w, http.StatusForbidden, "Forbidden")
		return false, false
	}
	if err != nil {
		s.fail(w, r, err, "")
		return false, false
	}
	admin := caller.UserType == models.AdminUserType
	if !admin && caller.ID != id {
		writeMessage(w, http.StatusForbidden, "You can only change your own account")
		return false, false
	}
	return admin, true
}

// sectionExists answers 404 itself when the section is missing
func (s *Server) sectionExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	ok, err := s.DB.SectionExists(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "")
		return false
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Section does not exist.")
	}
	return ok
}

// userExists answers 404 itself when the user is missing
func (s *Server) userExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	ok, err := s.DB.UserExists(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "")
		return false
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "User does not exist.")
	}
	return ok
}

// taskExists answers 404 itself when the task is missing or in the trash
func (s *Server) taskExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	ok, err := s.DB.TaskExists(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "")
		return false
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Task does not exist.")
	}
	return ok
}

// callerID is the id of the authenticated user
func callerID(r *http.Request) int64 {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.UserID
}
