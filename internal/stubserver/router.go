// Package stubserver is a self-contained stand-in for the production chat
// backend. It speaks the same REST contract the client gateway expects, so it
// serves both local development and the gateway's integration tests.
package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	filemodel "github.com/ekorkmaz/voxboard/internal/model/file"
	"github.com/ekorkmaz/voxboard/internal/model/user"
	"github.com/ekorkmaz/voxboard/pkg/utils"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("incorrect email or password")
)

type contextKey string

const userContextKey contextKey = "stubserver.user"

// Handler wires the stub endpoints onto a chi router.
type Handler struct {
	store *Store
}

// NewHandler builds a handler over the given store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Router assembles the full stub API surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/login", h.login)
	r.Post("/register", h.register)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/me", h.me)
		r.Post("/upload", h.upload)
		r.Get("/files", h.listFiles)
		r.Delete("/files/{id}", h.deleteFile)
		r.Post("/chat", h.chat)
	})

	return r
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			utils.RespondDetail(w, http.StatusUnauthorized, "Bearer token required")
			return
		}

		account, ok := h.store.UserForToken(token)
		if !ok {
			utils.RespondDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) user.User {
	account, _ := r.Context().Value(userContextKey).(user.User)
	return account
}

// login accepts form-encoded credentials with the email in the username
// field, matching the OAuth2 password-flow shape the real backend uses.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if err := r.ParseForm(); err != nil {
			utils.RespondDetail(w, http.StatusBadRequest, "Malformed login form")
			return
		}
	}

	email := r.FormValue("username")
	password := r.FormValue("password")

	token, err := h.store.Authenticate(email, password)
	if err != nil {
		utils.RespondDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Malformed registration payload")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		utils.RespondDetail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	created, err := h.store.CreateAccount(payload.Email, payload.Password, payload.FullName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utils.RespondDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
		utils.RespondDetail(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, created)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, currentUser(r))
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Malformed upload")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "File field is missing")
		return
	}
	defer part.Close()

	mediaType := header.Header.Get("Content-Type")
	if !filemodel.Accepted(header.Filename, mediaType) {
		utils.RespondDetail(w, http.StatusBadRequest, "Unsupported file type. Allowed: png, jpg, jpeg or audio files")
		return
	}

	size, err := io.Copy(io.Discard, part)
	if err != nil {
		utils.RespondDetail(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	record := h.store.AddFile(currentUser(r).ID, header.Filename, filemodel.Category(header.Filename), size)
	utils.RespondJSON(w, http.StatusOK, record)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.Files(currentUser(r).ID))
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	if !h.store.RemoveFile(currentUser(r).ID, fileID) {
		utils.RespondDetail(w, http.StatusNotFound, "File not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Malformed chat payload")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondDetail(w, http.StatusBadRequest, "Message must not be empty")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"user_message": message,
		"bot_response": botReply(message, currentUser(r)),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// botReply produces the canned keyword responses the demo assistant gives
// until a real model is wired behind the chat endpoint.
func botReply(message string, account user.User) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hey"):
		return fmt.Sprintf("Hello %s! How can I help you?", account.DisplayName())
	case strings.Contains(lower, "how are you"):
		return "I'm fine, thank you! I'm here for you. How can I help?"
	case strings.Contains(lower, "file"):
		return "You can manage your files from the panel on the left. Use the upload action to add a new one."
	case strings.Contains(lower, "help"):
		return "Happy to help! You can upload, list and delete files, and chat with me here."
	default:
		return fmt.Sprintf("I received your message: '%s'. This is a demo reply.", message)
	}
}
