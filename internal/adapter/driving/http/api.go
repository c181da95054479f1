package http

import (
	"net/http"
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID  domain.UserID `json:"userId"`
	Role    domain.Role   `json:"role"`
	Message string        `json:"message"`
}

type expertView struct {
	ID       domain.UserID         `json:"id"`
	Username string                `json:"username"`
	Role     domain.Role           `json:"role"`
	Status   domain.PresenceStatus `json:"status"`
}

type expertsResponse struct {
	TotalExperts int          `json:"totalExperts"`
	Experts      []expertView `json:"experts"`
}

type createCallRequest struct {
	UserID domain.UserID `json:"userId"`
}

type createCallResponse struct {
	CallID domain.CallID `json:"callId"`
}

type callsResponse struct {
	TotalCalls int                   `json:"totalCalls"`
	TotalUsers int                   `json:"totalUsers"`
	Calls      []domain.CallSnapshot `json:"calls"`
}

type userStatusView struct {
	Username string                `json:"username"`
	Role     domain.Role           `json:"role"`
	Status   domain.PresenceStatus `json:"status"`
}

type usersStatusResponse struct {
	TotalUsers  int              `json:"totalUsers"`
	OnlineUsers int              `json:"onlineUsers"`
	Users       []userStatusView `json:"users"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewError(domain.ErrValidation, "Malformed request body")
	}
	return nil
}

// Login checks credentials against the directory. It does not open a
// session; the client registers over the websocket afterwards.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.Directory.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:  user.ID,
		Role:    user.Role,
		Message: "Login successful",
	})
}

func (h *Handler) ListExperts(w http.ResponseWriter, r *http.Request) {
	experts := h.Directory.ListByRole(domain.RoleExpert)
	var online map[domain.UserID]bool
	err := h.Hub.Do(r.Context(), func() {
		online = h.onlineSet()
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := expertsResponse{Experts: make([]expertView, 0, len(experts))}
	for _, u := range experts {
		resp.Experts = append(resp.Experts, expertView{
			ID:       u.ID,
			Username: u.ID.String(),
			Role:     u.Role,
			Status:   statusOf(online, u.ID),
		})
	}
	resp.TotalExperts = len(resp.Experts)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	var (
		id      domain.CallID
		callErr error
	)
	err := h.Hub.Do(r.Context(), func() {
		id, callErr = h.Signaling.Calls.CreatePendingSession(req.UserID)
	})
	if err == nil {
		err = callErr
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createCallResponse{CallID: id})
}

func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	var resp callsResponse
	err := h.Hub.Do(r.Context(), func() {
		resp.Calls = h.Signaling.Calls.Sessions()
		resp.TotalUsers = h.Signaling.Presence.Len()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp.TotalCalls = len(resp.Calls)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UsersStatus(w http.ResponseWriter, r *http.Request) {
	users := h.Directory.List()
	var online map[domain.UserID]bool
	err := h.Hub.Do(r.Context(), func() {
		online = h.onlineSet()
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := usersStatusResponse{Users: make([]userStatusView, 0, len(users))}
	for _, u := range users {
		status := statusOf(online, u.ID)
		if status == domain.StatusOnline {
			resp.OnlineUsers++
		}
		resp.Users = append(resp.Users, userStatusView{
			Username: u.ID.String(),
			Role:     u.Role,
			Status:   status,
		})
	}
	resp.TotalUsers = len(resp.Users)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(h.started).Seconds(),
	})
}

// onlineSet must run on the hub loop.
func (h *Handler) onlineSet() map[domain.UserID]bool {
	ids := h.Signaling.Presence.Online()
	set := make(map[domain.UserID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func statusOf(online map[domain.UserID]bool, id domain.UserID) domain.PresenceStatus {
	if online[id] {
		return domain.StatusOnline
	}
	return domain.StatusOffline
}
