package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// NewRouter mounts the storefront API. redisClient may be nil, in which case
// idempotency records, auth rate limiting and guest cart session checks are off.
// metricsHandler may be nil to leave /metrics unmounted.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	productService products.Service,
	cartService cart.Service,
	ordersSvc orders.Service,
	checkoutService checkoutsvc.Service,
	userService users.Service,
	notificationService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// typed nils must not leak into the optional store interfaces
	var (
		idempotencyStore middleware.IdempotencyStore
		rateLimitStore   middleware.RateLimiterStore
		sessionStore     controllers.CartSessionStore
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		rateLimitStore = redisClient
		sessionStore = redisClient
	}

	cartAccess := controllers.NewCartAccess(sessionStore, cfg.Redis.SessionTTL, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/health", controllers.Health(cfg, dbP, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(productService, logg))
			r.Get("/featured", controllers.ProductsFeatured(productService, logg))
			r.Get("/low-stock", controllers.ProductsLowStock(productService, logg))
			r.Get("/low-stock/{threshold}", controllers.ProductsLowStock(productService, logg))
			r.Post("/add", controllers.ProductCreate(productService, logg))
			r.Get("/{id}", controllers.ProductGet(productService, logg))
			r.Put("/{id}", controllers.ProductUpdate(productService, logg))
			r.Delete("/{id}", controllers.ProductDelete(productService, logg))
			r.Post("/{id}/update-stock", controllers.ProductUpdateStock(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Post("/session", controllers.CartSession(sessionStore, cfg.Redis.SessionTTL, logg))
			r.Post("/add", controllers.CartAdd(cartService, cartAccess, logg))
			r.Put("/update", controllers.CartUpdate(cartService, cartAccess, logg))
			r.Delete("/remove", controllers.CartRemove(cartService, cartAccess, logg))
			r.Delete("/clear/{sessionId}", controllers.CartClear(cartService, cartAccess, logg))
			r.With(middleware.RequireAuth(logg)).Post("/merge", controllers.CartMerge(cartService, cartAccess, logg))
			r.Get("/{sessionId}", controllers.CartList(cartService, cartAccess, logg))
		})

		r.Post("/checkout", controllers.CheckoutCart(checkoutService, cartAccess, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrdersCreate(checkoutService, cartAccess, logg))
			r.Get("/", controllers.OrdersList(ordersSvc, logg))
			r.Get("/user/{userId}", controllers.OrdersByUser(ordersSvc, logg))
			r.Get("/{id}", controllers.OrderGet(ordersSvc, logg))
		})

		r.Route("/order-items", func(r chi.Router) {
			r.Get("/", controllers.OrderItemsList(ordersSvc, logg))
			r.Get("/order/{orderId}", controllers.OrderItemsByOrder(ordersSvc, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, rateLimitStore, logg)).Post("/register", controllers.UsersRegister(userService, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore, logg)).Post("/login", controllers.UsersLogin(userService, cartService, cartAccess, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(logg))
				r.With(middleware.RequireSelfOrAdmin("id", logg)).Get("/profile/{id}", controllers.UserProfileGet(userService, logg))
				r.With(middleware.RequireSelfOrAdmin("id", logg)).Put("/profile/{id}", controllers.UserProfileUpdate(userService, logg))
				r.With(middleware.RequireSelfOrAdmin("id", logg)).Put("/change-password/{id}", controllers.UserChangePassword(userService, logg))
				r.With(middleware.RequireAdmin(logg)).Get("/", controllers.UsersList(userService, logg))
				r.With(middleware.RequireSelfOrAdmin("id", logg)).Delete("/{id}", controllers.UserDelete(userService, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg), middleware.RequireAdmin(logg))
			r.Get("/", controllers.NotificationsList(notificationService, logg))
			r.Put("/read-all", controllers.NotificationsMarkAllRead(notificationService, logg))
			r.Put("/{id}/read", controllers.NotificationMarkRead(notificationService, logg))
		})
	})

	return r
}
