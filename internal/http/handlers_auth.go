package http

import (
	"errors"
	"net/http"
	"time"

	"zombiefinance/internal/auth"
)

const authCookie = "zf_auth"

type authView struct {
	Session *auth.Session
	Email   string
	Error   string
	Notice  string
}

func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "auth.html", authView{Session: s.cookieSession(r)})
}

func (s *Server) handleAuthAction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.render(w, r, http.StatusBadRequest, "auth.html", authView{Error: msgBadRequest})
		return
	}
	ctx := r.Context()
	email := p.Get("email")

	switch p.Get("action") {
	case "signin":
		sess, err := s.auth.SignIn(ctx, email, p.Get("password"))
		if err != nil {
			s.render(w, r, authStatus(err), "auth.html", authView{Email: email, Error: authMessage(err)})
			return
		}
		setAuthCookie(w, sess)
		seeOther(w, r, "/auth")
	case "signup":
		sess, err := s.auth.SignUp(ctx, email, p.Get("password"))
		if err != nil {
			s.render(w, r, authStatus(err), "auth.html", authView{Email: email, Error: authMessage(err)})
			return
		}
		if sess.AccessToken == "" {
			s.render(w, r, http.StatusOK, "auth.html", authView{Email: email, Notice: "Revisa tu correo para confirmar la cuenta."})
			return
		}
		setAuthCookie(w, sess)
		seeOther(w, r, "/auth")
	case "signout":
		s.auth.SignOut(ctx)
		http.SetCookie(w, &http.Cookie{Name: authCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
		seeOther(w, r, "/auth")
	default:
		s.render(w, r, http.StatusBadRequest, "auth.html", authView{Email: email, Error: msgBadRequest})
	}
}

// cookieSession restores the session named by the auth cookie, if it is
// still cached and active.
func (s *Server) cookieSession(r *http.Request) *auth.Session {
	c, err := r.Cookie(authCookie)
	if err != nil {
		return nil
	}
	sess, ok := s.auth.Lookup(c.Value)
	if !ok {
		return nil
	}
	return sess
}

func setAuthCookie(w http.ResponseWriter, sess *auth.Session) {
	c := &http.Cookie{
		Name:     authCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := sess.TTL(time.Now()); ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

func authStatus(err error) int {
	var ae *auth.Error
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func authMessage(err error) string {
	var ae *auth.Error
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return "Correo y contraseña requeridos"
	case errors.As(err, &ae) && ae.Message != "":
		return ae.Message
	default:
		return "Servicio de autenticación no disponible"
	}
}
