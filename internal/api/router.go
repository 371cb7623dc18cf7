package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/igscheduler/internal/api/handlers"
	"github.com/maheshrc27/igscheduler/internal/api/middleware"
)

type Handlers struct {
	Post    *handlers.PostHandler
	Account *handlers.AccountHandler
	Media   *handlers.MediaHandler
}

func SetupRoutes(app *fiber.App, auth *middleware.AuthMiddleware, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Use(auth.AuthMiddleware())

	api.Post("/posts", h.Post.CreatePost)
	api.Get("/posts", h.Post.ListPosts)
	api.Get("/posts/:id", h.Post.GetPost)
	api.Post("/posts/:id/retry", h.Post.RetryPost)
	api.Delete("/posts/:id", h.Post.RemovePost)

	api.Post("/accounts", h.Account.SaveAccount)

	if h.Media != nil {
		api.Post("/media", h.Media.UploadMedia)
	}
}
