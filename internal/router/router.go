package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"freight-backoffice/internal/config"
	"freight-backoffice/internal/handler"
	"freight-backoffice/internal/metrics"
	"freight-backoffice/internal/middleware"
	"freight-backoffice/internal/model"
)

type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Admins        *handler.AdminHandler
	Vendors       *handler.AccountHandler
	Customers     *handler.AccountHandler
	Loads         *handler.LoadHandler
	Wallet        *handler.WalletHandler
	Calls         *handler.CallHandler
	Notifications *handler.NotificationHandler
	Stream        *handler.StreamHandler
	Portal        *handler.PortalHandler
	Audit         *handler.AuditHandler
}

// New builds the HTTP surface. File downloads and multipart uploads are kept
// out of the timeout middleware, which buffers whole responses.
func New(cfg *config.Config, am *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	timeout := middleware.Timeout(cfg.RequestTimeout)

	r.Use(middleware.Recovery)
	r.Use(middleware.RealIP(middleware.NewProxyTrust(cfg.TrustedProxies)))
	r.Use(chimiddleware.CleanPath)
	r.Use(middleware.Logging)
	r.Use(m.Middleware)
	r.Use(middleware.SecureHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.Health.Check)
	if cfg.MetricsEnabled && m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(timeout)
			auth.Post("/{role}/login", h.Auth.Login)
			auth.Post("/{role}/register", h.Auth.Register)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(am.RequireSession).Get("/me", h.Auth.Me)
		})

		api.Route("/me", func(me chi.Router) {
			me.Use(am.RequireSession)
			me.Get("/notifications/stream", h.Stream.Notifications)
			me.Group(func(me chi.Router) {
				me.Use(timeout)
				me.Get("/notifications", h.Notifications.ListMine)
				me.Put("/notifications/{id}/read", h.Notifications.MarkRead)
			})
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(am.RequireSession, am.RequireRoles(model.RoleAdmin, model.RoleSudo))

			admin.Route("/admins", adminRoutes(am, h.Admins, timeout))
			admin.Route("/vendors", accountRoutes(am, h.Vendors, "vendor", timeout))
			admin.Route("/customers", accountRoutes(am, h.Customers, "customer", timeout))
			admin.Route("/loads", loadRoutes(am, h.Loads, timeout))
			admin.Route("/wallet", walletRoutes(am, h.Wallet, timeout))
			admin.Route("/calls", callRoutes(am, h.Calls, timeout))

			admin.With(timeout, am.Require("notification:create")).Post("/notifications", h.Notifications.Create)
			admin.With(timeout, am.RequireRoles(model.RoleSudo)).Get("/audit", h.Audit.List)
		})

		api.Route("/portal", portalRoutes(am, h.Portal, timeout))
	})

	return r
}

func adminRoutes(am *middleware.AuthMiddleware, h *handler.AdminHandler, timeout func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(am.RequireRoles(model.RoleSudo), timeout)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Put("/{id}/permissions", h.SetPermissions)
		r.Put("/{id}/status", h.SetStatus)
		r.Delete("/{id}", h.Delete)
	}
}

func accountRoutes(am *middleware.AuthMiddleware, h *handler.AccountHandler, resource string, timeout func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.With(am.Require(resource+":view")).Get("/", h.List)
			r.With(am.Require(resource+":create")).Post("/", h.Create)
			r.With(am.Require(resource+":view")).Get("/{id}", h.Get)
			r.With(am.Require(resource+":edit")).Put("/{id}", h.Update)
			r.With(am.Require(resource+":edit")).Put("/{id}/status", h.SetStatus)
			r.With(am.Require(resource+":edit")).Put("/{id}/permissions", h.SetPermissions)
			r.With(am.Require(resource+":delete")).Delete("/{id}", h.Delete)
		})

		r.With(am.Require(resource+":view")).Get("/{id}/kyc", h.KYC)
		r.With(am.Require(resource+":view")).Get("/{id}/photo", h.Photo)
	}
}

func loadRoutes(am *middleware.AuthMiddleware, h *handler.LoadHandler, timeout func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(timeout)
		r.With(am.Require("load:view")).Get("/", h.List)
		r.With(am.Require("load:create")).Post("/", h.Create)
		r.With(am.Require("load:view")).Get("/{id}", h.Get)
		r.With(am.Require("load:edit")).Put("/{id}", h.Update)
		r.With(am.Require("load:edit")).Put("/{id}/assign", h.Assign)
		r.With(am.Require("load:edit")).Put("/{id}/status", h.SetStatus)
		r.With(am.Require("load:delete")).Delete("/{id}", h.Delete)
	}
}

func walletRoutes(am *middleware.AuthMiddleware, h *handler.WalletHandler, timeout func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.With(am.Require("wallet:view")).Get("/", h.List)
			r.With(am.Require("wallet:create")).Post("/", h.Create)
			r.With(am.Require("wallet:view")).Get("/balance", h.Balance)
			r.With(am.Require("wallet:view")).Get("/{id}", h.Get)
			r.With(am.Require("wallet:edit")).Put("/{id}/review", h.Review)
		})

		r.With(am.Require("wallet:view")).Get("/{id}/proof", h.Proof)
	}
}

// callRoutes is the only family checked with verb aliases.
func callRoutes(am *middleware.AuthMiddleware, h *handler.CallHandler, timeout func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.With(am.RequireAliased("call:upload")).Post("/", h.Send)
		r.With(am.RequireAliased("call:download")).Get("/{id}/download", h.Download)

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.With(am.RequireAliased("call:view")).Get("/", h.List)
			r.With(am.RequireAliased("call:view")).Get("/{id}", h.Get)
			r.With(am.RequireAliased("call:delete")).Delete("/{id}", h.Delete)
		})
	}
}

func portalRoutes(am *middleware.AuthMiddleware, h *handler.PortalHandler, timeout func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(am.RequireSession, am.RequireRoles(model.RoleVendor, model.RoleCustomer))

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.With(am.Require("profile:view")).Get("/profile", h.Profile)
			r.With(am.Require("profile:edit")).Put("/profile", h.UpdateProfile)

			r.With(am.Require("loads:view")).Get("/loads", h.ListLoads)
			r.With(am.Require("loads:view")).Get("/loads/{id}", h.GetLoad)
			r.With(am.RequireRoles(model.RoleCustomer), am.Require("loads:create")).Post("/loads", h.RequestLoad)
			r.With(am.RequireRoles(model.RoleVendor), am.Require("loads:edit")).Put("/loads/{id}/status", h.UpdateLoadStatus)

			r.With(am.Require("wallet:view")).Get("/wallet", h.ListWallet)
			r.With(am.Require("wallet:view")).Get("/wallet/balance", h.Balance)
			r.With(am.Require("wallet:view")).Get("/wallet/{id}", h.GetTransaction)
		})

		r.With(am.Require("profile:edit")).Post("/profile/photo", h.UploadPhoto)
		r.With(am.Require("profile:edit")).Post("/profile/kyc", h.UploadKYC)
		r.With(am.Require("profile:view")).Get("/profile/photo", h.Photo)
		r.With(am.Require("profile:view")).Get("/profile/kyc", h.KYC)

		r.With(am.Require("wallet:create")).Post("/wallet", h.SubmitPayment)
		r.With(am.Require("wallet:create")).Put("/wallet/{id}/proof", h.AttachProof)
		r.With(am.Require("wallet:view")).Get("/wallet/{id}/proof", h.Proof)
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
