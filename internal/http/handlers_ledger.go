package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"zombiefinance/internal/core"
	"zombiefinance/internal/log"
)

const (
	msgBadRequest      = "Solicitud inválida"
	msgEmptyUsername   = "Ingresa un nombre de usuario"
	msgNoSession       = "Inicia sesión primero"
	msgInvalidAmount   = "Ingresa un monto mayor que cero"
	msgUnknownCategory = "Categoría desconocida"
	msgInvalidScreen   = "Pantalla no disponible"
	msgSaveFailed      = "No se pudo guardar. Intenta de nuevo."
)

// outcome describes how a ledger action ended, for finish.
type outcome struct {
	ok       bool
	err      error
	asJSON   bool
	reject   string
	redirect string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := buildPageView(s.ledger, s.currency)
	if id := r.URL.Query().Get("added"); id != "" {
		if c, ok := core.LookupCategory(id); ok {
			v.Notice = "Gasto agregado: " + c.Name
		}
	}
	s.render(w, r, http.StatusOK, "index.html", v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badRequest(w, r, p.IsJSON())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.ledger.SwitchUser(r.Context(), p.Get("username"))
	s.finish(w, r, outcome{ok: ok, err: err, asJSON: p.IsJSON(), reject: msgEmptyUsername, redirect: "/"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Logout()
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	seeOther(w, r, "/")
}

// handleScreen moves between home and the entry screens. Posting "home"
// from an entry screen goes back.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	screen := core.Screen(chi.URLParam(r, "screen"))

	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.ledger.Navigate(r.Context(), screen)
	s.finish(w, r, outcome{ok: ok, err: err, asJSON: wantsJSON(r), reject: s.rejectMessage(msgInvalidScreen), redirect: "/"})
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badRequest(w, r, p.IsJSON())
		return
	}
	// A parse failure leaves amount at 0, which the store rejects.
	amount, _ := core.ParseAmount(p.Get("amount"))

	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.ledger.AddIncome(r.Context(), amount)
	s.finish(w, r, outcome{ok: ok, err: err, asJSON: p.IsJSON(), reject: s.rejectMessage(msgInvalidAmount), redirect: "/"})
}

func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badRequest(w, r, p.IsJSON())
		return
	}
	categoryID := chi.URLParam(r, "category")
	amount, _ := core.ParseAmount(p.Get("amount"))

	reject := msgInvalidAmount
	redirect := "/"
	if c, ok := core.LookupCategory(categoryID); ok {
		redirect = "/?" + url.Values{"added": {c.ID}}.Encode()
	} else {
		reject = msgUnknownCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.ledger.AddExpense(r.Context(), categoryID, amount)
	s.finish(w, r, outcome{ok: ok, err: err, asJSON: p.IsJSON(), reject: s.rejectMessage(reject), redirect: redirect})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledger.Session(); !ok {
		writeJSONError(w, http.StatusUnauthorized, msgNoSession)
		return
	}
	writeJSON(w, http.StatusOK, buildSummaryResponse(s.ledger))
}

// rejectMessage prefers the no-session message, which the store checks
// before anything else. Callers hold mu.
func (s *Server) rejectMessage(fallback string) string {
	if _, ok := s.ledger.Session(); !ok {
		return msgNoSession
	}
	return fallback
}

// finish answers a ledger action. Callers hold mu.
//
// Accepted actions redirect to the page (303) or return the summary as
// JSON. Rejected ones re-render with 422. Storage failures answer 500; the
// store has already rolled back.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, o outcome) {
	ctx := r.Context()
	switch {
	case o.err != nil:
		s.events.LogError(ctx, "Ledger action failed", o.err, log.ComponentHTTP, r.URL.Path, nil)
		msg := msgSaveFailed
		if !errors.Is(o.err, core.ErrPersist) {
			msg = "Error interno"
		}
		s.fail(w, r, o.asJSON, http.StatusInternalServerError, msg)
	case !o.ok:
		s.fail(w, r, o.asJSON, http.StatusUnprocessableEntity, o.reject)
	case o.asJSON:
		if _, active := s.ledger.Session(); !active {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
		writeJSON(w, http.StatusOK, buildSummaryResponse(s.ledger))
	default:
		seeOther(w, r, o.redirect)
	}
}

// fail renders the current page with msg. Callers hold mu.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, asJSON bool, status int, msg string) {
	if asJSON || wantsJSON(r) {
		writeJSONError(w, status, msg)
		return
	}
	v := buildPageView(s.ledger, s.currency)
	v.Error = msg
	s.render(w, r, status, "index.html", v)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, asJSON bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail(w, r, asJSON, http.StatusBadRequest, msgBadRequest)
}
