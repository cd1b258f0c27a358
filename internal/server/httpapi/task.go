package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/services"
)

func criteriaFromQuery(r *http.Request) services.TaskCriteria {
	q := r.URL.Query()
	return services.TaskCriteria{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Project:  q.Get("project"),
		Team:     q.Get("team"),
		Owner:    q.Get("owner"),
		Tag:      q.Get("tag"),
		Sort:     q.Get("sort"),
	}
}

type taskListResponse struct {
	Tasks []*models.Task `json:"tasks"`
	Count int            `json:"count"`
}

func (s *HTTPServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.ListTasks(r.Context(), criteriaFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Count: len(tasks)})
}

func (s *HTTPServer) handleListTeamTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.ListTeamTasks(r.Context(), r.PathValue("id"), criteriaFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Count: len(tasks)})
}

func (s *HTTPServer) handleListProjectTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.ListProjectTasks(r.Context(), r.PathValue("id"), criteriaFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Count: len(tasks)})
}

func (s *HTTPServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *HTTPServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in services.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.tasks.CreateTask(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *HTTPServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in services.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.tasks.UpdateTask(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *HTTPServer) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "task deleted"})
}

func (s *HTTPServer) handleReportLastWeek(w http.ResponseWriter, r *http.Request) {
	report, err := s.tasks.LastWeekCompleted(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleReportPending(w http.ResponseWriter, r *http.Request) {
	report, err := s.tasks.PendingWork(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleReportClosedTasks(w http.ResponseWriter, r *http.Request) {
	report, err := s.tasks.ClosedTasks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type createAttachmentRequest struct {
	FileName string `json:"fileName"`
}

func (s *HTTPServer) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	var req createAttachmentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.attachments.CreateAttachment(r.Context(), r.PathValue("id"), req.FileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	result, err := s.attachments.ListAttachments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
