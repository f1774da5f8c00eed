package routes

import (
	"log/slog"

	"rightsnet/app/auth"
	"rightsnet/app/metrics"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"
	"rightsnet/app/services"
)

// Options configures the services built by NewDeps.
type Options struct {
	Tokens         *auth.TokenIssuer
	BcryptCost     int
	BufferSize     int
	AllowedOrigins []string
	StaticDir      string
	Logger         *slog.Logger
}

// Deps holds everything the router serves.
type Deps struct {
	Auth          *services.AuthService
	Posts         *services.PostService
	Comments      *services.CommentService
	Chat          *services.ChatService
	Communities   *services.CommunityService
	Countries     *services.CountryService
	Directory     *services.DirectoryService
	Notifications *services.NotificationService

	Broker  *realtime.Broker
	Hub     *realtime.Hub
	Metrics *metrics.Registry
	Logger  *slog.Logger

	// StaticDir, when set, is served for every path outside /api.
	StaticDir string
}

// NewDeps wires repositories into services and the realtime hub. Every
// service publishes committed changes to the shared broker.
func NewDeps(store *repositories.Store, opts Options) *Deps {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	broker := realtime.NewBroker(opts.BufferSize)
	access := services.NewAccess(store.Communities, store.Memberships)
	notifications := services.NewNotificationService(store.Notifications).WithPublisher(broker)

	d := &Deps{
		Auth: services.NewAuthService(store.Users, opts.Tokens, opts.BcryptCost),
		Posts: services.NewPostService(store.Posts, store.Comments, store.Likes, store.Users, access).
			WithEvents(broker, notifications),
		Comments: services.NewCommentService(store.Comments, store.Posts, access).
			WithEvents(broker, notifications),
		Chat: services.NewChatService(store.Conversations, store.Messages, store.Users, access).
			WithEvents(broker, notifications),
		Communities: services.NewCommunityService(store.Communities, store.Memberships, store.Conversations,
			store.Messages, store.Posts, store.Comments, store.Likes, access).WithEvents(broker, notifications),
		Countries:     services.NewCountryService(store.Users, store.Posts, store.Communities, store.Listings),
		Directory:     services.NewDirectoryService(store.Listings, store.Users),
		Notifications: notifications,
		Broker:        broker,
		Metrics:       metrics.NewRegistry(),
		Logger:        logger,
		StaticDir:     opts.StaticDir,
	}
	d.Hub = realtime.NewHub(broker, d.Auth, d.Chat, d.Chat, realtime.HubOptions{
		AllowedOrigins: opts.AllowedOrigins,
		Logger:         logger,
	})
	return d
}
