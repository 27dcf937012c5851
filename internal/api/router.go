package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/avellaud/pictobank/internal/app"
	iauth "github.com/avellaud/pictobank/internal/auth"
	"github.com/avellaud/pictobank/internal/handlers"
	"github.com/avellaud/pictobank/internal/middleware"
	"github.com/avellaud/pictobank/internal/services"
)

// Deps holds everything the router needs.
type Deps struct {
	Config    *app.Config
	DB        *gorm.DB
	JWT       *iauth.JWTService
	Accounts  *services.AccountService
	Hierarchy *services.HierarchyService
	Artifacts *services.ArtifactService
}

// NewRouter wires middleware and routes. Read endpoints resolve the viewer
// and scope results; write endpoints additionally require authentication.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.Identify(deps.JWT))

	router.GET("/health", handlers.Health(deps.DB))
	if deps.Config != nil && deps.Config.Monitoring.Prometheus {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.JWT)
	nodeHandler := handlers.NewNodeHandler(deps.Hierarchy)
	artifactHandler := handlers.NewArtifactHandler(deps.Artifacts)

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/forest", nodeHandler.Forest)
		api.GET("/folders/:id/children", nodeHandler.ListChildren)
		api.GET("/pictograms/file/*path", nodeHandler.ServeFile)

		api.GET("/artifacts/:kind", artifactHandler.List)
		api.GET("/artifacts/:kind/:id", artifactHandler.Get)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth())
		{
			authed.POST("/folders", nodeHandler.CreateFolder)
			authed.POST("/pictograms", nodeHandler.CreatePictogram)
			authed.PUT("/pictograms/:id", nodeHandler.UpdatePictogram)
			authed.DELETE("/nodes", nodeHandler.DeleteNode)

			authed.POST("/artifacts/:kind", artifactHandler.Upsert)
			authed.DELETE("/artifacts/:kind/:id", artifactHandler.Delete)
		}
	}

	return router
}
