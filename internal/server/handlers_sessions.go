package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/liftlog/liftlog/internal/workout"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var p workout.StartSessionParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	session, err := s.engine.StartSession(r.Context(), userIDFromContext(r), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, 30)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sessions, err := s.engine.ListSessions(r.Context(), userIDFromContext(r), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}

	session, err := s.engine.GetSession(r.Context(), userIDFromContext(r), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	var p workout.UpdateSessionParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	session, err := s.engine.UpdateSession(r.Context(), userIDFromContext(r), sessionID, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}

	// Body is optional; it may carry a client-side completion timestamp. An
	// empty body is fine, a malformed one must not complete the session.
	var body struct {
		CompletedAt *time.Time `json:"completed_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	session, err := s.engine.CompleteSession(r.Context(), userIDFromContext(r), sessionID, body.CompletedAt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	var p workout.AddExerciseParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	ex, err := s.engine.AddExercise(r.Context(), userIDFromContext(r), sessionID, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleStartExercise(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	exerciseID, ok := urlUUID(r, "exerciseID")
	if !ok {
		badID(w, "exercise ID")
		return
	}

	ex, err := s.engine.StartExercise(r.Context(), userIDFromContext(r), sessionID, exerciseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleCompleteExercise(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	exerciseID, ok := urlUUID(r, "exerciseID")
	if !ok {
		badID(w, "exercise ID")
		return
	}

	ex, err := s.engine.CompleteExercise(r.Context(), userIDFromContext(r), sessionID, exerciseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	exerciseID, ok := urlUUID(r, "exerciseID")
	if !ok {
		badID(w, "exercise ID")
		return
	}
	var p workout.SetParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	set, err := s.engine.LogSet(r.Context(), userIDFromContext(r), sessionID, exerciseID, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	exerciseID, ok := urlUUID(r, "exerciseID")
	if !ok {
		badID(w, "exercise ID")
		return
	}
	setID, ok := urlUUID(r, "setID")
	if !ok {
		badID(w, "set ID")
		return
	}
	var p workout.UpdateSetParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	set, err := s.engine.UpdateSet(r.Context(), userIDFromContext(r), sessionID, exerciseID, setID, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	exerciseID, ok := urlUUID(r, "exerciseID")
	if !ok {
		badID(w, "exercise ID")
		return
	}
	setID, ok := urlUUID(r, "setID")
	if !ok {
		badID(w, "set ID")
		return
	}

	set, err := s.engine.StartRest(r.Context(), userIDFromContext(r), sessionID, exerciseID, setID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleEndRest(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	exerciseID, ok := urlUUID(r, "exerciseID")
	if !ok {
		badID(w, "exercise ID")
		return
	}
	setID, ok := urlUUID(r, "setID")
	if !ok {
		badID(w, "set ID")
		return
	}

	set, err := s.engine.EndRest(r.Context(), userIDFromContext(r), sessionID, exerciseID, setID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleCreateSuperset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(r, "sessionID")
	if !ok {
		badID(w, "session ID")
		return
	}
	var p workout.SupersetParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	exercises, err := s.engine.CreateSuperset(r.Context(), userIDFromContext(r), sessionID, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}
