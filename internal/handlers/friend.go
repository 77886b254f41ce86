package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hexsera/hexpoint/internal/logging"
	"github.com/hexsera/hexpoint/internal/models"
	"github.com/hexsera/hexpoint/internal/services"
)

type FriendHandler struct {
	friendshipService services.FriendshipServiceInterface
}

func NewFriendHandler(friendshipService services.FriendshipServiceInterface) *FriendHandler {
	return &FriendHandler{friendshipService: friendshipService}
}

type FriendRequestRequest struct {
	RequesterID int64 `json:"requester_id"`
	ReceiverID  int64 `json:"receiver_id"`
}

type FriendRequestResponse struct {
	Message     string `json:"message"`
	RequesterID int64  `json:"requester_id"`
	ReceiverID  int64  `json:"receiver_id"`
}

type FriendRequestActionResponse struct {
	Message     string                  `json:"message"`
	RequesterID int64                   `json:"requester_id"`
	ReceiverID  int64                   `json:"receiver_id"`
	Status      models.FriendshipStatus `json:"status"`
}

type FriendRequestListResponse struct {
	Requests []models.FriendRequestData `json:"requests"`
}

func (h *FriendHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFriendRequest(w, r)
	if !ok {
		return
	}

	f, err := h.friendshipService.CreateRequest(r.Context(), req.RequesterID, req.ReceiverID)
	if err != nil {
		writeServiceError(w, "creating friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestResponse{
		Message:     "Friend request sent successfully",
		RequesterID: f.RequesterID,
		ReceiverID:  f.ReceiverID,
	})
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID, err := strconv.ParseInt(query.Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user_id")
		return
	}

	status, given := statusFilter(query)
	if given && status == "" {
		writeServiceError(w, "listing friend requests", services.ErrInvalidStatusFilter)
		return
	}

	requests, err := h.friendshipService.ListRequests(r.Context(), userID, status)
	if err != nil {
		writeServiceError(w, "listing friend requests", err)
		return
	}
	if requests == nil {
		requests = []models.FriendRequestData{}
	}

	writeJSON(w, http.StatusOK, FriendRequestListResponse{Requests: requests})
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFriendRequest(w, r)
	if !ok {
		return
	}

	f, err := h.friendshipService.Accept(r.Context(), req.RequesterID, req.ReceiverID)
	if err != nil {
		writeServiceError(w, "accepting friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestActionResponse{
		Message:     "Friend request accepted",
		RequesterID: f.RequesterID,
		ReceiverID:  f.ReceiverID,
		Status:      f.Status,
	})
}

func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFriendRequest(w, r)
	if !ok {
		return
	}

	f, err := h.friendshipService.Reject(r.Context(), req.RequesterID, req.ReceiverID)
	if err != nil {
		writeServiceError(w, "rejecting friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestActionResponse{
		Message:     "Friend request rejected",
		RequesterID: f.RequesterID,
		ReceiverID:  f.ReceiverID,
		Status:      f.Status,
	})
}

// statusFilter reads status, falling back to friend_status. given reports
// whether either parameter was present, even with an empty value.
func statusFilter(query url.Values) (status string, given bool) {
	for _, key := range []string{"status", "friend_status"} {
		if values, ok := query[key]; ok {
			return values[0], true
		}
	}
	return "", false
}

// decodeFriendRequest requires both ids to be present. Any integer is
// accepted; the service decides what an id means.
func decodeFriendRequest(w http.ResponseWriter, r *http.Request) (FriendRequestRequest, bool) {
	var body struct {
		RequesterID *int64 `json:"requester_id"`
		ReceiverID  *int64 `json:"receiver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequesterID == nil || body.ReceiverID == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return FriendRequestRequest{}, false
	}
	return FriendRequestRequest{RequesterID: *body.RequesterID, ReceiverID: *body.ReceiverID}, true
}

// writeServiceError renders caller-facing service errors with their detail and
// hides everything else behind a 500.
func writeServiceError(w http.ResponseWriter, action string, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status := http.StatusBadRequest
		if errors.Is(svcErr, services.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, svcErr.Detail)
		return
	}

	logging.Error("Error "+action, map[string]interface{}{"error": err.Error()})
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
