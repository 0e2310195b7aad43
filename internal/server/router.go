package server

import (
	"net/http"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/config"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/handlers"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/middleware"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionMaxAge = 7 * 24 * 60 * 60 // 7 days

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("fleet_session", store))

	r.Use(middleware.InjectUser())

	// AUTH
	r.POST("/api/auth/signup", handlers.Signup)
	r.POST("/api/auth/login", handlers.Login)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.POST("/api/auth/logout", handlers.Logout)
	auth.GET("/api/auth/me", handlers.Me)

	// SHEETS
	excel := auth.Group("/api/excel")

	// creation and the own-files listing are manager territory
	excel.POST("/create",
		middleware.RequireRole(models.RoleManager),
		handlers.CreateSheet,
	)
	excel.POST("/upload",
		middleware.RequireRole(models.RoleManager),
		handlers.UploadSheet,
	)
	excel.GET("",
		middleware.RequireRole(models.RoleManager),
		handlers.ListSheets,
	)

	// fleet-wide listing with owners — admin only
	excel.GET("/admin",
		middleware.RequireRole(models.RoleAdmin),
		handlers.ListAllSheets,
	)

	// read/edit: owner or admin (ownership is enforced in the engine)
	edit := excel.Group("/")
	edit.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))

	edit.GET("/:id", handlers.GetSheet)
	edit.PUT("/:id", handlers.UpdateSheet)
	edit.GET("/:id/download", handlers.DownloadSheet)
	edit.POST("/:id/headers/rename", handlers.RenameSheetHeader)
	edit.POST("/:id/rows", handlers.AddSheetRow)
	edit.DELETE("/:id/rows/:index", handlers.DeleteSheetRow)
	edit.POST("/:id/columns", handlers.AddSheetColumn)
	edit.DELETE("/:id/columns", handlers.DeleteSheetColumn)

	// delete and duplicate stay literal-owner-only: an admin hitting
	// someone else's sheet here gets a 404 from the engine, not a 403
	edit.DELETE("/:id", handlers.DeleteSheet)
	edit.POST("/:id/duplicate", handlers.DuplicateSheet)

	// USERS
	users := auth.Group("/api/users")
	users.Use(middleware.RequireRole(models.RoleAdmin))

	users.GET("", handlers.ListUsers)
	users.POST("/create", handlers.CreateUser)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
