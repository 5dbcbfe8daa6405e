package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/locomproapp/locompro/internal/infra/config"
	"github.com/locomproapp/locompro/internal/infra/obs"
)

type BuyRequestHTTP interface {
	Create(c *gin.Context)
	Update(c *gin.Context)
	Close(c *gin.Context)
	Delete(c *gin.Context)
	Get(c *gin.Context)
	Search(c *gin.Context)
	ListMine(c *gin.Context)
}

type OfferHTTP interface {
	Submit(c *gin.Context)
	List(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Counter(c *gin.Context)
	Delete(c *gin.Context)
}

type ChatHTTP interface {
	ListMine(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
}

type ReviewHTTP interface {
	Submit(c *gin.Context)
	ListForUser(c *gin.Context)
}

type UploadHTTP interface {
	Upload(c *gin.Context)
}

type Handlers struct {
	BuyRequest     BuyRequestHTTP
	Offer          OfferHTTP
	Chat           ChatHTTP
	Review         ReviewHTTP
	Upload         UploadHTTP
	Auth           AuthHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.BuyRequest != nil {
		api.GET("/buy-requests", h.BuyRequest.Search)
		api.POST("/buy-requests", h.BuyRequest.Create)
		api.GET("/buy-requests/:id", h.BuyRequest.Get)
		api.PUT("/buy-requests/:id", h.BuyRequest.Update)
		api.POST("/buy-requests/:id/close", h.BuyRequest.Close)
		api.DELETE("/buy-requests/:id", h.BuyRequest.Delete)
		api.GET("/me/buy-requests", h.BuyRequest.ListMine)
	}
	if h.Offer != nil {
		api.GET("/buy-requests/:id/offers", h.Offer.List)
		api.POST("/buy-requests/:id/offers", h.Offer.Submit)
		api.POST("/offers/:id/accept", h.Offer.Accept)
		api.POST("/offers/:id/reject", h.Offer.Reject)
		api.POST("/offers/:id/counter", h.Offer.Counter)
		api.DELETE("/offers/:id", h.Offer.Delete)
	}
	if h.Chat != nil {
		api.GET("/me/chats", h.Chat.ListMine)
		api.GET("/chats/:id/messages", h.Chat.ListMessages)
		api.POST("/chats/:id/messages", h.Chat.SendMessage)
	}
	if h.Review != nil {
		api.POST("/offers/:id/reviews", h.Review.Submit)
		api.GET("/users/:id/reviews", h.Review.ListForUser)
	}
	if h.Upload != nil {
		api.POST("/uploads", h.Upload.Upload)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
