package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kiraleos/reply-engine/internal/core"
	"github.com/kiraleos/reply-engine/internal/logger"
	"github.com/kiraleos/reply-engine/internal/store"
)

type contextKey string

const userIDKey contextKey = "userID"

type APIHandler struct {
	generation *core.GenerationService
	accounts   *core.AccountService
	validate   *validator.Validate
	log        *zap.SugaredLogger
}

func NewAPIHandler(gs *core.GenerationService, as *core.AccountService) *APIHandler {
	v := validator.New()
	// report json names in validation errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &APIHandler{
		generation: gs,
		accounts:   as,
		validate:   v,
		log:        logger.NewLogger("api"),
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		user, err := h.accounts.UserFromToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// decode reads the JSON body into req and checks its validate tags. It writes
// the 400 response itself and reports whether the handler may continue.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if t, ok := req.(interface{ trim() }); ok {
		t.trim()
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			writeError(w, http.StatusBadRequest, "Missing or invalid fields: "+strings.Join(fields, ", "))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

type ReplyRequest struct {
	Caption  string          `json:"caption" validate:"required"`
	RoomID   string          `json:"roomId" validate:"required"`
	Comments []store.Comment `json:"comments" validate:"required"`
}

func (r *ReplyRequest) trim() {
	r.Caption = strings.TrimSpace(r.Caption)
	r.RoomID = strings.TrimSpace(r.RoomID)
}

type QuickRequest struct {
	Caption string `json:"caption" validate:"required"`
	RoomID  string `json:"roomId" validate:"required"`
}

func (r *QuickRequest) trim() {
	r.Caption = strings.TrimSpace(r.Caption)
	r.RoomID = strings.TrimSpace(r.RoomID)
}

type TopicRequest struct {
	RoomID   string   `json:"roomId" validate:"required"`
	Hint     string   `json:"hint"`
	Examples []string `json:"examples" validate:"required"`
}

func (r *TopicRequest) trim() {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.Hint = strings.TrimSpace(r.Hint)
}

type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

func (r *TextRequest) trim() {
	r.Text = strings.TrimSpace(r.Text)
}

func (h *APIHandler) replyHandler(route core.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReplyRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.runGeneration(w, r, route, "reply", core.GenerateRequest{
			RoomID:   req.RoomID,
			Caption:  req.Caption,
			Comments: req.Comments,
		})
	}
}

func (h *APIHandler) QuickReplyHandler(w http.ResponseWriter, r *http.Request) {
	var req QuickRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.runGeneration(w, r, core.RouteQuick, "reply", core.GenerateRequest{
		RoomID:  req.RoomID,
		Caption: req.Caption,
	})
}

func (h *APIHandler) TopicHandler(w http.ResponseWriter, r *http.Request) {
	var req TopicRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.runGeneration(w, r, core.RouteTopic, "topic", core.GenerateRequest{
		RoomID:   req.RoomID,
		Hint:     req.Hint,
		Examples: req.Examples,
	})
}

func (h *APIHandler) textHandler(route core.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.runGeneration(w, r, route, "text", core.GenerateRequest{Text: req.Text})
	}
}

func (h *APIHandler) runGeneration(w http.ResponseWriter, r *http.Request, route core.Route, field string, req core.GenerateRequest) {
	gen, err := h.generation.Generate(r.Context(), route, req)
	if err != nil {
		var rejected *core.RejectionError
		var upstream *core.UpstreamError
		switch {
		case errors.As(err, &rejected):
			writeError(w, http.StatusInternalServerError, "Generated text failed validation: "+string(rejected.Reason))
		case errors.As(err, &upstream):
			h.log.Errorw("completion failed", "route", route.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "Completion service error")
		default:
			h.log.Errorw("generation failed", "route", route.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{field: gen.Text})
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}

func (r *RegisterRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

type AuthResponse struct {
	User  store.PublicUser `json:"user"`
	Token string           `json:"token"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.accounts.Register(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) && user != nil {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": "User already exists",
				"user":  user.Public(),
			})
			return
		}
		h.log.Errorw("error registering user", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: user.Public(), Token: token})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.accounts.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.Errorw("error logging in", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user.Public(), Token: token})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(userIDKey).(string)

	user, err := h.accounts.GetUser(userID)
	if err != nil {
		h.log.Errorw("error loading user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

type CreatePaymentRequest struct {
	Email       string  `json:"email"`
	DollarValue float64 `json:"dollarValue"`
}

func (h *APIHandler) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.DollarValue < core.MinimumPaymentDollars {
		writeError(w, http.StatusBadRequest, core.ErrMinimumPayment.Error())
		return
	}
	if req.DollarValue > core.MaximumPaymentDollars {
		writeError(w, http.StatusBadRequest, core.ErrMaximumPayment.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid fields: email")
		return
	}

	payment, err := h.accounts.CreatePayment(req.Email, req.DollarValue)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, core.ErrMinimumPayment), errors.Is(err, core.ErrMaximumPayment):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Errorw("error creating payment", "email", req.Email, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create payment")
		}
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

func (h *APIHandler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	payment, err := h.accounts.GetPayment(paymentID)
	if err != nil {
		h.log.Errorw("error loading payment", "payment_id", paymentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load payment")
		return
	}
	if payment == nil {
		writeError(w, http.StatusNotFound, "Payment not found")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
