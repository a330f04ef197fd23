package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/monikanaramsetti/spendwise/internal/core"
	applog "github.com/monikanaramsetti/spendwise/internal/log"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type sessionResponse struct {
	LoggedIn bool           `json:"loggedIn"`
	Identity *core.Identity `json:"identity,omitempty"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = sanitizeInput(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	identity, err := s.resolveIdentity(r, req.Email, req.Password)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if err := s.store.Login(r.Context(), identity, req.Remember); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true, Identity: &identity})
}

// resolveIdentity asks the collaborator server when one is configured.
// Without one, identities are derived locally so the app works offline; the
// ID is a UUID seeded from the email to keep it stable across sessions.
func (s *Server) resolveIdentity(r *http.Request, email, password string) (core.Identity, error) {
	if s.auth != nil {
		return s.auth.SignIn(r.Context(), email, password)
	}
	s.logger.InfoContext(r.Context(), "No remote server, local sign-in",
		applog.FieldOperation, applog.OpLogin)
	return core.Identity{
		UserID:    localUserID(email),
		UserName:  email[:strings.IndexByte(email+"@", '@')],
		UserEmail: email,
	}, nil
}

func localUserID(email string) string {
	return "local-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(email))).String()
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = sanitizeInput(req.Name)
	req.Email = sanitizeInput(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	var identity core.Identity
	if s.auth != nil {
		user, err := s.auth.CreateUser(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		identity = core.Identity{UserID: user.ID, UserName: user.Name, UserEmail: user.Email}
	} else {
		identity = core.Identity{
			UserID:    localUserID(req.Email),
			UserName:  req.Name,
			UserEmail: req.Email,
		}
	}

	if err := s.store.Login(r.Context(), identity, req.Remember); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{LoggedIn: true, Identity: &identity})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.Logout(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: false})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.LoggedIn() {
		writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: false})
		return
	}
	identity := s.store.Identity()
	writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true, Identity: &identity})
}
