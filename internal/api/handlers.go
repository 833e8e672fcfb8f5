package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chatpalace/internal/apperr"
	"chatpalace/internal/core"
	"chatpalace/internal/store"
)

type APIHandler struct {
	userService *core.UserService
	chatService *core.ChatService
	logger      *zap.Logger
}

func NewAPIHandler(us *core.UserService, cs *core.ChatService, logger *zap.Logger) *APIHandler {
	return &APIHandler{userService: us, chatService: cs, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleError maps service errors to HTTP responses. Expected failures
// carry their own message; everything else surfaces as a generic
// server error.
func (h *APIHandler) handleError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if status == http.StatusInternalServerError {
			h.logger.Error("request failed", zap.Error(err))
		}
		writeError(w, status, appErr.Message)
		return
	}
	h.logger.Error("unexpected error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// User handlers

type RegisterRequest struct {
	Username       string `json:"username"`
	ProfileImage   string `json:"profileImage"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"passwordRepeat,omitempty"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.userService.Register(req.Username, req.ProfileImage, req.Password, req.PasswordRepeat)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.userService.Login(req.Username, req.Password)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers()
	if err != nil {
		h.handleError(w, err)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type EditUserRequest struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
	Password     string `json:"password,omitempty"`
}

func (h *APIHandler) EditUserHandler(w http.ResponseWriter, r *http.Request) {
	var req EditUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.userService.EditUser(chi.URLParam(r, "id"), req.Username, req.ProfileImage, req.Password); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"success": "User updated successfully."})
}

// Conversation handlers

type CreateConversationRequest struct {
	User2 string `json:"user2"`
}

func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	conv, created, err := h.chatService.FindOrCreateConversation(callerID(r), req.User2)
	if err != nil {
		h.handleError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, conv)
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chatService.ListConversations(callerID(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if convs == nil {
		convs = []store.ConversationWithPeer{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatService.GetConversation(chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.chatService.DeleteConversation(chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":                  "Conversation and associated messages deleted successfully",
		"deletedConversationCount": result.DeletedConversationCount,
		"deletedMessagesCount":     result.DeletedMessagesCount,
	})
}

// Message handlers

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatService.ListMessages(chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if messages == nil {
		messages = []store.MessageWithSender{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	msg, err := h.chatService.PostMessage(chi.URLParam(r, "id"), callerID(r), req.Content)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
