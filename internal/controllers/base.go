package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/drstein77/cartwidget/internal/cart"
	"github.com/drstein77/cartwidget/internal/middleware"
	"github.com/drstein77/cartwidget/internal/models"
	"github.com/drstein77/cartwidget/internal/storage"
	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// maxBodyBytes bounds form and JSON request bodies.
const maxBodyBytes = 4 << 10

// Catalog supplies the product cards.
type Catalog interface {
	Products() []models.Product
}

// Metrics records cart activity.
type Metrics interface {
	CommandDispatched(command string, units int)
	StoreFailed(op string)
}

// Log interface for logging
type Log interface {
	Debug(string, ...zap.Field)
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	backend   storage.Backend
	catalog   Catalog
	sessions  sessions.Store
	metrics   Metrics
	log       Log
	templates *template.Template
}

// NewBaseController creates a new BaseController instance
func NewBaseController(backend storage.Backend, catalog Catalog, sessionStore sessions.Store, metrics Metrics, log Log) (*BaseController, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &BaseController{
		backend:   backend,
		catalog:   catalog,
		sessions:  sessionStore,
		metrics:   metrics,
		log:       log,
		templates: templates,
	}, nil
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(h.log))

	r.Get("/healthz", h.getHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(h.sessions, h.log))
		r.Use(middleware.LimitBody(maxBodyBytes))
		r.Use(chimw.Compress(5))

		r.Get("/", h.getIndex)
		r.Post("/cart/add", h.postAdd)
		r.Post("/cart/increment", h.postIncrement)
		r.Post("/cart/decrement", h.postDecrement)
		r.Post("/cart/clear", h.postClear)

		r.Get("/api/v0/cart", h.getCart)
		r.Delete("/api/v0/cart", h.deleteCart)
		r.Post("/api/v0/cart/items", h.postItem)
		r.Post("/api/v0/cart/increment", h.postItemIncrement)
		r.Post("/api/v0/cart/decrement", h.postItemDecrement)
	})

	return r
}

type pageData struct {
	Products   []models.Product
	Cart       cart.View
	Toasts     []string
	ToastDelay int64
}

type cartResponse struct {
	cart.View
	Notifications  []string `json:"notifications,omitempty"`
	NotificationMS int64    `json:"notification_ms,omitempty"`
}

// session is a request-scoped cart: the manager plus the collaborators it renders and notifies through.
type session struct {
	raw     *sessions.Session
	manager *cart.Manager
	target  *viewRecorder
}

func (h *BaseController) openCart(w http.ResponseWriter, r *http.Request, notifier cart.Notifier) (*session, bool) {
	raw, ok := middleware.SessionFromContext(r.Context())
	sid := middleware.SessionID(raw)
	if !ok || sid == "" {
		http.Error(w, "Session is not available", http.StatusInternalServerError)
		return nil, false
	}

	if notifier == nil {
		notifier = &flashNotifier{session: raw}
	}
	target := &viewRecorder{}
	manager := cart.NewManager(storage.Scoped(h.backend, sid), target, notifier, h.log)

	if err := manager.Initialize(r.Context()); err != nil {
		h.metrics.StoreFailed("get")
		http.Error(w, "Cart is temporarily unavailable", http.StatusServiceUnavailable)
		return nil, false
	}

	return &session{raw: raw, manager: manager, target: target}, true
}

func (h *BaseController) dispatch(ctx context.Context, w http.ResponseWriter, s *session, cmd cart.Command) bool {
	err := s.manager.Dispatch(ctx, cmd)
	h.metrics.CommandDispatched(cmd.Kind.String(), s.target.view.Badge)
	if err != nil {
		h.metrics.StoreFailed("set")
		http.Error(w, fmt.Sprintf("Failed to update cart: %v", err), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *BaseController) getIndex(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openCart(w, r, nil)
	if !ok {
		return
	}

	data := pageData{
		Products:   h.catalog.Products(),
		Cart:       s.target.view,
		Toasts:     takeFlashes(s.raw),
		ToastDelay: cart.NotificationDuration.Milliseconds(),
	}
	if len(data.Toasts) > 0 {
		if err := s.raw.Save(r, w); err != nil {
			h.log.Error("Failed to save session", zap.Error(err))
		}
	}

	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "index", data); err != nil {
		h.log.Error("Template execution failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// form routes

func (h *BaseController) postAdd(w http.ResponseWriter, r *http.Request) {
	cmd, err := addCommand(models.AddRequest{
		Name:  r.PostFormValue("name"),
		Price: r.PostFormValue("price"),
		Image: r.PostFormValue("image"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.formCommand(w, r, cmd)
}

func (h *BaseController) postIncrement(w http.ResponseWriter, r *http.Request) {
	h.formCommand(w, r, cart.Increment(r.PostFormValue("id")))
}

func (h *BaseController) postDecrement(w http.ResponseWriter, r *http.Request) {
	h.formCommand(w, r, cart.Decrement(r.PostFormValue("id")))
}

func (h *BaseController) postClear(w http.ResponseWriter, r *http.Request) {
	h.formCommand(w, r, cart.Clear())
}

func (h *BaseController) formCommand(w http.ResponseWriter, r *http.Request, cmd cart.Command) {
	s, ok := h.openCart(w, r, nil)
	if !ok {
		return
	}
	if !h.dispatch(r.Context(), w, s, cmd) {
		return
	}

	if err := s.raw.Save(r, w); err != nil {
		h.log.Error("Failed to save session", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// JSON API

func (h *BaseController) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openCart(w, r, &inlineNotifier{})
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, cartResponse{View: s.target.view})
}

func (h *BaseController) deleteCart(w http.ResponseWriter, r *http.Request) {
	h.apiCommand(w, r, cart.Clear())
}

func (h *BaseController) postItem(w http.ResponseWriter, r *http.Request) {
	var req models.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd, err := addCommand(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.apiCommand(w, r, cmd)
}

func (h *BaseController) postItemIncrement(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}
	h.apiCommand(w, r, cart.Increment(req.ID))
}

func (h *BaseController) postItemDecrement(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}
	h.apiCommand(w, r, cart.Decrement(req.ID))
}

func (h *BaseController) apiCommand(w http.ResponseWriter, r *http.Request, cmd cart.Command) {
	notifier := &inlineNotifier{}
	s, ok := h.openCart(w, r, notifier)
	if !ok {
		return
	}
	if !h.dispatch(r.Context(), w, s, cmd) {
		return
	}

	resp := cartResponse{View: s.target.view, Notifications: notifier.messages}
	if len(resp.Notifications) > 0 {
		resp.NotificationMS = cart.NotificationDuration.Milliseconds()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *BaseController) getHealth(w http.ResponseWriter, r *http.Request) {
	if !h.backend.Ping(r.Context()) {
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *BaseController) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

var errMissingName = errors.New("product name is required")

// addCommand turns a product card into an add command. The name is the id.
func addCommand(req models.AddRequest) (cart.Command, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return cart.Command{}, errMissingName
	}
	price, err := cart.ParsePrice(req.Price)
	if err != nil {
		return cart.Command{}, err
	}
	return cart.Add(name, price, strings.TrimSpace(req.Image)), nil
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (models.ItemRequest, bool) {
	var req models.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}
