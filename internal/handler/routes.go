package handler

import (
	"go-pos-store/internal/audit"
	"go-pos-store/internal/middleware"
	"go-pos-store/internal/model"
	"go-pos-store/internal/service"
	"go-pos-store/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Services are the dependencies of the HTTP API.
type Services struct {
	Auth      service.AuthService
	Users     service.UserService
	Catalog   service.CatalogService
	Orders    service.OrderService
	Settings  service.SettingsService
	Dashboard service.DashboardService
	// Audit is optional; the history route is mounted only when set.
	Audit audit.Reader
}

// Register mounts the REST API under /api/v1 and the websocket feed on /ws.
// Every route except login needs a valid token.
func Register(app *fiber.App, s Services, hub *ws.Hub) {
	authHandler := NewAuthHandler(s.Auth)
	userHandler := NewUserHandler(s.Users)
	catalogHandler := NewCatalogHandler(s.Catalog)
	orderHandler := NewOrderHandler(s.Orders)
	settingsHandler := NewSettingsHandler(s.Settings)
	dashHandler := NewDashboardHandler(s.Dashboard)

	requireAuth := middleware.RequireAuth(s.Auth)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admins := middleware.RequireRole(model.RoleAdmin)

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/change-password", authHandler.ChangePassword)

	// Dashboard Routes
	protected.Get("/dashboard/stats", managers, dashHandler.GetDashboardStats)
	protected.Get("/dashboard/top-products", managers, dashHandler.GetTopProducts)
	protected.Get("/dashboard/daily-sales", managers, dashHandler.GetDailySales)

	// Catalog Routes
	protected.Get("/categories", catalogHandler.GetCategories)
	protected.Post("/categories", managers, catalogHandler.CreateCategory)
	protected.Put("/categories/:id", managers, catalogHandler.UpdateCategory)
	protected.Delete("/categories/:id", managers, catalogHandler.DeleteCategory)
	protected.Get("/products", catalogHandler.GetProducts)
	protected.Get("/products/:id", catalogHandler.GetProduct)
	protected.Post("/products", managers, catalogHandler.CreateProduct)
	protected.Put("/products/:id", managers, catalogHandler.UpdateProduct)
	protected.Delete("/products/:id", managers, catalogHandler.DeleteProduct)

	// Order Routes
	protected.Get("/orders", orderHandler.GetOrders)
	protected.Post("/orders", orderHandler.PlaceOrder)
	protected.Get("/orders/number/:number", orderHandler.GetOrderByNumber)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Put("/orders/:id/status", orderHandler.ChangeStatus)
	protected.Get("/orders/:id/comments", orderHandler.GetComments)
	protected.Post("/orders/:id/comments", orderHandler.AddComment)
	protected.Get("/orders/:id/receipt", orderHandler.GetReceipt)
	protected.Post("/orders/:id/print", orderHandler.Print)

	// Settings Routes
	protected.Get("/settings/store", settingsHandler.GetStore)
	protected.Put("/settings/store", admins, settingsHandler.UpdateStore)
	protected.Get("/settings/printer", settingsHandler.GetPrinter)
	protected.Put("/settings/printer", managers, settingsHandler.UpdatePrinter)
	protected.Get("/settings/general", settingsHandler.GetGeneral)
	protected.Put("/settings/general", admins, settingsHandler.UpdateGeneral)
	protected.Get("/settings/hours", settingsHandler.GetHours)
	protected.Put("/settings/hours/:day", managers, settingsHandler.UpdateHours)

	// User Management Routes
	users := protected.Group("/users", admins)
	users.Get("/", userHandler.GetUsers)
	users.Get("/:id", userHandler.GetUser)
	users.Post("/", userHandler.CreateUser)
	users.Put("/:id", userHandler.UpdateUser)
	users.Post("/:id/deactivate", userHandler.DeactivateUser)
	users.Delete("/:id", userHandler.DeleteUser)

	if s.Audit != nil {
		protected.Get("/audit/:id", admins, NewAuditHandler(s.Audit).GetHistory)
	}

	if hub == nil {
		return
	}

	// WebSocket Route
	app.Use("/ws", middleware.RequireSocketAuth(s.Auth), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !hub.Join(c) {
			return
		}
		defer hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
