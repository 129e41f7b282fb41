package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meltedmeethas/storefront-backend/api/controllers"
	"github.com/meltedmeethas/storefront-backend/api/middleware"
	"github.com/meltedmeethas/storefront-backend/internal/account"
	"github.com/meltedmeethas/storefront-backend/internal/auth"
	"github.com/meltedmeethas/storefront-backend/internal/cart"
	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/internal/checkout"
	"github.com/meltedmeethas/storefront-backend/internal/coupons"
	"github.com/meltedmeethas/storefront-backend/internal/feedback"
	"github.com/meltedmeethas/storefront-backend/internal/orders"
	"github.com/meltedmeethas/storefront-backend/internal/otp"
	"github.com/meltedmeethas/storefront-backend/pkg/auth/session"
	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/metrics"
	pkgredis "github.com/meltedmeethas/storefront-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface needs. Nil services answer
// with a 500 from their handlers; nil stores disable the middleware using them.
type Dependencies struct {
	Sessions    session.AccessSessionChecker
	Users       middleware.UserChecker
	RateLimits  middleware.RateLimitStore
	Idempotency pkgredis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	Registry    *prometheus.Registry

	Auth     auth.Service
	Register auth.RegisterService
	Password auth.PasswordService
	OTP      otp.Service
	Account  account.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
	Coupons  coupons.Service
	Feedback feedback.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	httpMetrics := metrics.NewHTTPMetrics(nil)
	if deps.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(deps.Registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		httpMetrics.Middleware,
	)

	limits := cfg.AuthRateLimit
	otpRule := func(flow middleware.Flow) middleware.ThrottleRule {
		return middleware.ThrottleRule{Flow: flow, Window: limits.OTPWindow, PerIP: limits.OTPIPLimit, PerEmail: limits.OTPEmailLimit}
	}
	loginRule := middleware.ThrottleRule{Flow: middleware.FlowLogin, Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit}
	signupRule := middleware.ThrottleRule{Flow: middleware.FlowSignup, Window: limits.RegisterWindow, PerIP: limits.RegisterIPLimit, PerEmail: limits.RegisterEmailLimit}
	throttle := func(rule middleware.ThrottleRule) func(http.Handler) http.Handler {
		return middleware.Throttle(rule, deps.RateLimits, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}

	// public
	r.With(throttle(signupRule)).Post("/signup", controllers.AuthSignup(deps.Register, logg))
	r.With(throttle(loginRule)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
	r.Post("/auth/refresh", controllers.AuthRefresh(deps.Auth, logg))

	r.With(throttle(otpRule(middleware.FlowSendOTP))).Post("/send-otp", controllers.OTPSend(deps.OTP, logg))
	r.With(throttle(otpRule(middleware.FlowVerifyOTP))).Post("/verify-otp", controllers.OTPVerify(deps.OTP, logg))
	r.With(throttle(otpRule(middleware.FlowForgotPassword))).Post("/forgot-password", controllers.PasswordForgot(deps.Password, logg))
	r.With(throttle(otpRule(middleware.FlowResetPassword))).Post("/reset-password", controllers.PasswordReset(deps.Password, logg))

	r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
	r.Get("/featured", controllers.CatalogFeatured(deps.Catalog, logg))
	r.Get("/hotdeals", controllers.CatalogHotDeals(deps.Catalog, logg))
	r.Get("/view/{id}", controllers.CatalogProduct(deps.Catalog, logg))
	r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))

	r.Post("/feedback", controllers.FeedbackSubmit(deps.Feedback, logg))
	r.Post("/apply-coupon", controllers.CouponApply(deps.Coupons, logg))

	// authenticated; the group resolves the route pattern before the
	// idempotency middleware looks it up
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, deps.Users, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/auth/logout", controllers.AuthLogout(deps.Auth, logg))

		r.Get("/me", controllers.AccountMe(deps.Account, logg))
		r.Post("/change-password", controllers.PasswordChange(deps.Password, logg))
		r.Put("/update-address", controllers.AccountUpdateAddress(deps.Account, logg))
		r.Put("/update", controllers.AccountUpdateName(deps.Account, logg))
		r.Delete("/delete", controllers.AccountDelete(deps.Account, logg))

		r.Post("/cart/add", controllers.CartAdd(deps.Cart, logg))
		r.Get("/cart", controllers.CartFetch(deps.Cart, logg))
		r.Put("/cart/{productId}", controllers.CartSetQuantity(deps.Cart, logg))
		r.Delete("/cart/{productId}", controllers.CartRemove(deps.Cart, logg))
		r.Delete("/clear-cart", controllers.CartClear(deps.Cart, logg))

		r.Post("/create-order", controllers.CheckoutCreateOrder(deps.Checkout, logg))
		r.Post("/verify-payment", controllers.CheckoutVerifyPayment(deps.Checkout, logg))

		r.Get("/orders", controllers.OrdersList(deps.Orders, logg))
		r.Get("/orders/{id}", controllers.OrderDetail(deps.Orders, logg))
		r.Post("/cancel/{orderId}", controllers.OrderCancel(deps.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Post("/admin/orders/{orderId}/deliver", controllers.AdminOrderDeliver(deps.Orders, logg))
		})
	})

	return r
}
