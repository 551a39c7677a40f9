package devserver

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

type emailBody struct {
	Email string `json:"email"`
}

type verifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenBody struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func randomCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1000000))
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		s.writeValidation(w, "email", "value is not a valid email address")
		return
	}

	code := s.newCode()
	s.mu.Lock()
	s.codes[email] = code
	s.mu.Unlock()

	s.logger.Info("Verification code issued", "email", email, "code", code, "dev_code", DevCode)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Verification code sent"})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		s.writeValidation(w, "email", "value is not a valid email address")
		return
	}
	code := strings.TrimSpace(body.Code)

	s.mu.Lock()
	issued, requested := s.codes[email]
	valid := code == DevCode || (requested && code == issued)
	var token string
	if valid {
		delete(s.codes, email)
		token = uuid.NewString()
		s.tokens[token] = email
	}
	s.mu.Unlock()

	if !valid {
		s.writeError(w, "Invalid or expired verification code", http.StatusBadRequest)
		return
	}

	s.logger.Info("User verified", "email", email)
	s.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// issueConfirmationLocked returns the confirmation token that releases the
// held analyses of email
func (s *Server) issueConfirmationLocked(email string) string {
	for tok, e := range s.confirms {
		if e == email {
			return tok
		}
	}
	tok := uuid.NewString()
	s.confirms[tok] = email
	return tok
}

func (s *Server) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		s.writeValidation(w, "token", "field required")
		return
	}
	if strings.HasPrefix(token, "fail") {
		s.writeError(w, "Token is invalid or has expired.", http.StatusBadRequest)
		return
	}

	now := s.now()
	released := 0

	s.mu.Lock()
	if email, ok := s.confirms[token]; ok {
		delete(s.confirms, token)
		for _, a := range s.analyses {
			if a.Email == email && a.confirmedAt.IsZero() {
				a.confirmedAt = now
				released++
			}
		}
	}
	s.mu.Unlock()

	s.logger.Info("Email confirmed", "released_analyses", released)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Email confirmed successfully"})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		s.writeValidation(w, "message", "field required")
		return
	}
	if len([]rune(msg)) > 1000 {
		s.writeValidation(w, "message", "ensure this value has at most 1000 characters")
		return
	}

	email, _ := s.userFor(r)

	s.mu.Lock()
	s.contacts = append(s.contacts, contactRecord{Email: email, Subject: body.Subject, Message: msg})
	s.mu.Unlock()

	s.logger.Info("Contact message received", "email", email, "subject", body.Subject, "length", len(msg))
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Message sent"})
}
