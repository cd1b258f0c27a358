package httpapi

import (
	"net/http"
)

type createEntityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateEntityRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *HTTPServer) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	team, err := s.teams.CreateTeam(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *HTTPServer) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req updateEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	team, err := s.teams.UpdateTeam(r.Context(), r.PathValue("id"), req.Name, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *HTTPServer) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.teams.DeleteTeam(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "team deleted"})
}

func (s *HTTPServer) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams.ListTeams(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *HTTPServer) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.teams.GetTeam(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
