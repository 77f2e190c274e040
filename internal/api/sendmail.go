package api

import (
	"net/http"
	"strings"

	planxmail "github.com/tgienger/planx/internal/mail"
)

type sendMailRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

func (s *Server) sendMail(w http.ResponseWriter, r *http.Request) {
	var req sendMailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Email is required.")
		return
	}

	msg, err := planxmail.Generic(email, req.Subject, req.Text, req.HTML)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if err := s.Mail.Send(r.Context(), msg); err != nil {
		s.Logger.ErrorContext(r.Context(), "failed to send mail", "to", email, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Error sending email")
		return
	}
	writeMessage(w, http.StatusOK, "Email sent successfully")
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (s *Server) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required.")
		return
	}

	user, err := s.DB.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.fail(w, r, err, "User not found.")
		return
	}

	otp, err := planxmail.GenerateOTP()
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if err := s.DB.SetOTP(r.Context(), user.ID, otp, s.now().Add(s.OTPTTL)); err != nil {
		s.fail(w, r, err, "User not found.")
		return
	}

	msg, err := planxmail.OTP(user.Email, otp, s.OTPTTL)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if err := s.Mail.Send(r.Context(), msg); err != nil {
		s.Logger.ErrorContext(r.Context(), "failed to send otp", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Error sending email")
		return
	}
	writeMessage(w, http.StatusOK, "OTP sent successfully")
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required.")
		return
	}
	if strings.TrimSpace(req.OTP) == "" {
		writeMessage(w, http.StatusBadRequest, "OTP is required.")
		return
	}

	user, err := s.DB.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.fail(w, r, err, "User not found.")
		return
	}
	if !s.checkOTP(w, r, user, req.OTP, "Invalid OTP.") {
		return
	}
	writeMessage(w, http.StatusOK, "OTP verified successfully.")
}
