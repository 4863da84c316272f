package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/lynkr/lynkr/internal/config"
	"github.com/lynkr/lynkr/internal/database"
	"github.com/lynkr/lynkr/internal/realtime"
	postgresrepo "github.com/lynkr/lynkr/internal/repository/postgres"
	"github.com/lynkr/lynkr/internal/service"
	"github.com/lynkr/lynkr/internal/storage"
	"github.com/lynkr/lynkr/internal/transport/http/handlers"
	"github.com/lynkr/lynkr/internal/transport/http/middleware"
	"github.com/lynkr/lynkr/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	convRepo := postgresrepo.NewConversationRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Attachment storage
	var store storage.ObjectStore
	if cfg.CloudinaryURL != "" {
		store, err = storage.NewCloudinaryStore(cfg.CloudinaryURL)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("Using Cloudinary attachment storage")
	} else {
		store = storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
		log.Printf("Using local attachment storage in %s", cfg.UploadDir)
	}

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	convService := service.NewConversationService(convRepo, messageRepo, userRepo)
	messageService := service.NewMessageService(messageRepo, convRepo, store)

	// Real-time broker; message events are re-fetched with their joins
	// before delivery.
	broker := realtime.NewBroker()
	broker.SetHydrator(messageRepo)
	convService.SetNotifier(broker)
	messageService.SetNotifier(broker)

	// Optional cross-instance fan-out over Redis.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		bridge := realtime.NewRedisBridge(redis.NewClient(opts), broker)
		broker.SetPublisher(bridge)
		go bridge.Run(context.Background())
		log.Println("Redis event bridge enabled")
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()
	defer ws.AttachBroker(hub, broker)()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)
	convHandler := handlers.NewConversationHandler(convService)
	messageHandler := handlers.NewMessageHandler(messageService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Users
	mux.Handle("GET /api/v1/users/{id}", auth(http.HandlerFunc(userHandler.GetProfile)))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(convHandler.GetOrCreate)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(convHandler.List)))
	mux.Handle("POST /api/v1/conversations/{id}/read", auth(http.HandlerFunc(convHandler.MarkRead)))

	// Protected - Messages
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("POST /api/v1/conversations/{id}/attachments", auth(http.HandlerFunc(messageHandler.UploadAttachment)))
	mux.Handle("DELETE /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete)))

	// WebSocket
	mux.Handle("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Locally stored attachments
	if cfg.CloudinaryURL == "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(mux)))
}
