package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/session"
)

// Dependencies are the long-lived objects the routes share.
type Dependencies struct {
	Config   *config.Config
	Client   *api.Client
	Sessions *session.Manager
	Geo      geo.Provider
	Logger   zerolog.Logger
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, d Dependencies) {
	cfg := d.Config

	// Initialize Telegram service
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, d.Logger)
	checkoutService := checkout.NewService(d.Client, checkout.OptionsFromConfig(cfg), telegramService, d.Logger)

	pageHandler := handlers.NewPageHandler(d.Sessions, d.Client, d.Logger)
	catalogHandler := handlers.NewCatalogHandler(d.Sessions, d.Client, d.Logger)
	cartHandler := handlers.NewCartHandler(d.Sessions, d.Client, d.Logger)
	authHandler := handlers.NewAuthHandler(d.Sessions, d.Client, cfg.OTPResend, d.Logger)
	accountHandler := handlers.NewAccountHandler(d.Sessions, d.Client, d.Logger)
	checkoutHandler := handlers.NewCheckoutHandler(d.Sessions, d.Client, checkoutService, d.Geo, cfg.PayPalClientID, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.Sessions, d.Client, d.Logger)

	app.Use(middleware.Session(middleware.SessionConfig{
		Manager: d.Sessions,
		Secret:  cfg.SessionSecret,
		Secure:  cfg.CookieSecure,
		Logger:  d.Logger,
	}))
	if cfg.CSRFEnabled {
		app.Use(middleware.CSRF(cfg.CookieSecure))
	}
	otpLimiter := middleware.OTPLimiter(5, 10*time.Minute)
	requireUser := middleware.RequireUser()

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Shop
	app.Get("/", pageHandler.Home)
	app.Get("/privacy-policy", pageHandler.PrivacyPolicy)
	app.Get("/product/:id", catalogHandler.Product)
	app.Get("/product-category", catalogHandler.Category)
	app.Get("/search", catalogHandler.Search)

	// Cart
	app.Get("/cart", cartHandler.View)
	app.Post("/cart/add", cartHandler.Add)
	app.Post("/cart/update", cartHandler.Update)
	app.Post("/cart/delete", cartHandler.Delete)

	// Auth routes
	app.Get("/login", authHandler.LoginPage)
	app.Post("/login", authHandler.Login)
	app.Post("/login/code", authHandler.LoginCode)
	app.Post("/login/cancel", authHandler.LoginCancel)
	app.Post("/logout", authHandler.Logout)
	app.Get("/sign-up", authHandler.SignupPage)
	app.Post("/sign-up", otpLimiter, authHandler.SignupRequest)
	app.Get("/sign-up/complete", authHandler.SignupCompletePage)
	app.Post("/sign-up/complete", authHandler.SignupComplete)
	app.Get("/forgot-password", authHandler.ForgotPage)
	app.Post("/forgot-password", otpLimiter, authHandler.ForgotRequest)
	app.Post("/forgot-password/verify", authHandler.ForgotVerify)
	app.Post("/forgot-password/reset", authHandler.ForgotReset)
	app.Post("/forgot-password/restart", authHandler.ForgotRestart)

	// Account routes
	app.Get("/change-password", requireUser, accountHandler.ChangePasswordPage)
	app.Post("/change-password", requireUser, accountHandler.ChangePassword)
	app.Get("/my-orders", requireUser, accountHandler.MyOrders)
	twoFactor := app.Group("/2fa", requireUser)
	twoFactor.Get("/setup", accountHandler.TwoFactorPage)
	twoFactor.Post("/setup", accountHandler.TwoFactorStart)
	twoFactor.Post("/verify", accountHandler.TwoFactorVerify)

	// Payment routes; gateway return pages first so the group guard skips them
	app.Get("/payment/success", checkoutHandler.Success)
	app.Get("/payment/failed", checkoutHandler.Failed)
	payment := app.Group("/payment", requireUser)
	payment.Get("/", checkoutHandler.Page)
	payment.Post("/address", checkoutHandler.Address)
	payment.Post("/submit", checkoutHandler.Submit)
	payment.Post("/confirm", checkoutHandler.Confirm)
	payment.Post("/paypal/create-order", checkoutHandler.PayPalCreateOrder)
	payment.Post("/paypal/capture-order", checkoutHandler.PayPalCaptureOrder)
	app.Get("/qr-payment", requireUser, checkoutHandler.QRPage)

	// Admin routes
	admin := app.Group("/admin-panel", middleware.RequireAdmin())
	admin.Get("/", adminHandler.Index)
	admin.Get("/all-users", adminHandler.Users)
	admin.Post("/all-users/:id", adminHandler.UpdateUser)
	admin.Post("/all-users/:id/delete", adminHandler.DeleteUser)
	admin.Get("/all-products", adminHandler.Products)
	admin.Post("/all-products", adminHandler.UploadProduct)
	admin.Post("/all-products/:id", adminHandler.UpdateProduct)
	admin.Post("/all-products/:id/delete", adminHandler.DeleteProduct)
	admin.Get("/all-payment", adminHandler.Orders)
	admin.Post("/all-payment/:id/status", adminHandler.UpdateOrderStatus)
	admin.Post("/all-payment/:id/delete", adminHandler.DeleteOrder)
	admin.Get("/2fa-setup", func(c *fiber.Ctx) error {
		return c.Redirect("/2fa/setup", fiber.StatusSeeOther)
	})

	app.Use(pageHandler.NotFound)
}
