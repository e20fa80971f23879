package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/comprai/comprai/internal/ai"
	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/cache"
	"github.com/comprai/comprai/internal/email"
	"github.com/comprai/comprai/internal/estimate"
	"github.com/comprai/comprai/internal/handler"
	"github.com/comprai/comprai/internal/middleware"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/notify"
	"github.com/comprai/comprai/internal/push"
	"github.com/comprai/comprai/internal/stats"
	"github.com/comprai/comprai/internal/store"
	appsync "github.com/comprai/comprai/internal/sync"
	ws "github.com/comprai/comprai/internal/websocket"
)

// Config holds the server's runtime options.
type Config struct {
	SecureCookies bool
	Push          push.Config
	AI            ai.Config
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	mirror       *appsync.Mirror
	overview     *cache.OverviewCache
	access       *handler.Access
	authH        *handler.AuthHandler
	listH        *handler.ListHandler
	itemH        *handler.ItemHandler
	memberH      *handler.MemberHandler
	shareH       *handler.ShareHandler
	estimateH    *handler.EstimateHandler
	aiH          *handler.AIHandler
	receiptH     *handler.ReceiptHandler
	statsH       *handler.StatsHandler
	notifyH      *handler.NotifyHandler
	pushH        *handler.PushHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	listStore := store.NewListStore(db)
	itemStore := store.NewItemStore(db)
	memberStore := store.NewMembershipStore(db)
	shareStore := store.NewShareCodeStore(db)
	priceStore := store.NewPriceStore(db)
	pushStore := store.NewPushStore(db)

	// In-process mirror of each list's items, fed by hub events.
	mirror := appsync.NewMirror(logger.With("component", "mirror"))
	hub.AddListener(mirror)

	fetchSummaries := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		return listStore.Summaries(userID)
	}
	overview := cache.NewOverviewCache(cache.DefaultWindow, fetchSummaries, logger.With("component", "cache"))
	access := handler.NewAccess(listStore, memberStore)

	var pushSvc *push.Service
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
	}

	var aiClient *ai.Client
	if cfg.AI.APIKey != "" {
		aiClient = ai.NewClient(cfg.AI)
	}

	estimator := estimate.New(priceStore)
	var predictor stats.Predictor
	if aiClient != nil {
		predictor = aiClient
	}
	statsSvc := stats.NewService(priceStore, predictor, logger.With("component", "stats"))

	var pusher notify.PushSender
	if pushSvc != nil {
		pusher = pushSvc
	}
	dispatcher := notify.NewDispatcher(notify.Stores{
		Lists:   listStore,
		Members: memberStore,
		Users:   userStore,
		Push:    pushStore,
	}, emailClient, pusher, logger.With("component", "notify"))

	s := &Server{
		db:           db,
		hub:          hub,
		mirror:       mirror,
		overview:     overview,
		access:       access,
		authH:        handler.NewAuthHandler(userStore, sessionStore, cfg.SecureCookies, logger.With("component", "auth")),
		listH:        handler.NewListHandler(listStore, itemStore, memberStore, overview, access, hub, logger.With("component", "list")),
		itemH:        handler.NewItemHandler(itemStore, listStore, mirror, access, hub, logger.With("component", "item")),
		memberH:      handler.NewMemberHandler(memberStore, overview, access, hub, logger.With("component", "member")),
		shareH:       handler.NewShareHandler(shareStore, listStore, memberStore, overview, access, hub, logger.With("component", "share")),
		estimateH:    handler.NewEstimateHandler(estimator, itemStore, access, logger.With("component", "estimate")),
		receiptH:     handler.NewReceiptHandler(aiClient, priceStore, logger.With("component", "receipt")),
		statsH:       handler.NewStatsHandler(statsSvc, logger.With("component", "stats")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}

	s.aiH = handler.NewAIHandler(aiClient, listStore, itemStore, overview, hub, logger.With("component", "ai"))
	s.notifyH = handler.NewNotifyHandler(dispatcher, access, logger.With("component", "notify"))
	if pushSvc != nil {
		s.pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push"))
	}
	return s
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// OverviewCache returns the overview cache so its refresh loop can be run.
func (s *Server) OverviewCache() *cache.OverviewCache {
	return s.overview
}

// Mirror returns the in-process item mirror fed by list events.
func (s *Server) Mirror() *appsync.Mirror {
	return s.mirror
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind the session cookie
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/profile", s.authH.Profile)
	mux.HandleFunc("PUT /api/profile", s.authH.UpdateProfile)

	// Lists
	mux.HandleFunc("GET /api/lists", s.listH.Overview)
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{id}", s.listH.Rename)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)

	// Items
	mux.HandleFunc("POST /api/lists/{id}/items", s.itemH.Create)
	mux.HandleFunc("GET /api/lists/{id}/items", s.itemH.List)
	mux.HandleFunc("GET /api/lists/{id}/items/deleted", s.itemH.ListDeleted)
	mux.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("POST /api/items/{id}/check", s.itemH.ToggleChecked)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /api/items/{id}/restore", s.itemH.Restore)
	mux.HandleFunc("GET /api/items/autocomplete", s.itemH.Autocomplete)

	// Members and sharing
	mux.HandleFunc("GET /api/lists/{id}/members", s.memberH.List)
	mux.HandleFunc("DELETE /api/lists/{id}/members/{user_id}", s.memberH.Remove)
	mux.HandleFunc("POST /api/lists/{id}/leave", s.memberH.Leave)
	mux.HandleFunc("POST /api/lists/{id}/share", s.shareH.Create)
	mux.HandleFunc("GET /api/lists/{id}/share", s.shareH.Codes)
	mux.HandleFunc("GET /api/join/{code}", s.shareH.Preview)
	mux.HandleFunc("POST /api/join/{code}", s.shareH.Join)

	// Estimation and statistics
	mux.HandleFunc("GET /api/lists/{id}/estimate", s.estimateH.EstimateList)
	mux.HandleFunc("GET /api/stats", s.statsH.Overview)
	mux.HandleFunc("GET /api/stats/prediction", s.statsH.Prediction)

	// AI
	mux.HandleFunc("POST /api/ai/suggest", s.aiH.Suggest)
	mux.HandleFunc("POST /api/ai/lists", s.aiH.CreateList)
	mux.HandleFunc("POST /api/receipts", s.receiptH.Process)

	// Notifications
	mux.HandleFunc("POST /api/notify", s.notifyH.Notify)
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	}

	// WebSocket: clients subscribe to the lists they can access
	canAccess := func(r *http.Request, listID int64) bool {
		ok, err := s.access.CanView(listID, auth.UserID(r.Context()))
		return err == nil && ok
	}
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, canAccess, s.logger.With("component", "ws")))
}
