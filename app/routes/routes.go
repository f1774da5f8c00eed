package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"rightsnet/app/controllers"
	"rightsnet/app/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(d *Deps) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics(d.Metrics))
	router.Use(middleware.ContentTypeJSON)

	router.NotFoundHandler = jsonFallback(http.StatusNotFound, "not found")
	router.MethodNotAllowedHandler = jsonFallback(http.StatusMethodNotAllowed, "method not allowed")

	authController := controllers.NewAuthController(d.Auth)
	postController := controllers.NewPostController(d.Posts)
	commentController := controllers.NewCommentController(d.Comments)
	chatController := controllers.NewChatController(d.Chat)
	communityController := controllers.NewCommunityController(d.Communities)
	countryController := controllers.NewCountryController(d.Countries)
	directoryController := controllers.NewDirectoryController(d.Directory)
	notificationController := controllers.NewNotificationController(d.Notifications)
	systemController := controllers.NewSystemController(d.Metrics, d.Hub, d.Broker)

	requireAuth := middleware.RequireAuth(d.Auth)
	optionalAuth := middleware.OptionalAuth(d.Auth)
	private := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	public := func(h http.HandlerFunc) http.Handler { return optionalAuth(h) }

	api := router.PathPrefix("/api").Subrouter()

	// Auth and profiles
	api.Handle("/auth/signup", http.HandlerFunc(authController.Signup)).Methods("POST")
	api.Handle("/auth/login", http.HandlerFunc(authController.Login)).Methods("POST")
	api.Handle("/auth/me", private(authController.Me)).Methods("GET")
	api.Handle("/auth/me", private(authController.UpdateMe)).Methods("PUT")
	api.Handle("/auth/me/communities", private(communityController.Mine)).Methods("GET")
	api.Handle("/users", public(authController.IndexUsers)).Methods("GET")
	api.Handle("/users/{id:[0-9]+}", public(authController.ShowUser)).Methods("GET")

	// Feed
	posts := api.PathPrefix("/posts").Subrouter()
	posts.Handle("", public(postController.Index)).Methods("GET")
	posts.Handle("", private(postController.Create)).Methods("POST")
	posts.Handle("/{id:[0-9]+}", public(postController.Show)).Methods("GET")
	posts.Handle("/{id:[0-9]+}", private(postController.Edit)).Methods("PUT")
	posts.Handle("/{id:[0-9]+}", private(postController.Delete)).Methods("DELETE")
	posts.Handle("/{id:[0-9]+}/like", private(postController.Liked)).Methods("GET")
	posts.Handle("/{id:[0-9]+}/like", private(postController.Like)).Methods("POST")
	posts.Handle("/{id:[0-9]+}/like", private(postController.Unlike)).Methods("DELETE")

	// Comments
	posts.Handle("/{postId:[0-9]+}/comments", public(commentController.Index)).Methods("GET")
	posts.Handle("/{postId:[0-9]+}/comments", private(commentController.Create)).Methods("POST")
	api.Handle("/comments/{id:[0-9]+}", public(commentController.Show)).Methods("GET")
	api.Handle("/comments/{id:[0-9]+}", private(commentController.Edit)).Methods("PUT")
	api.Handle("/comments/{id:[0-9]+}", private(commentController.Delete)).Methods("DELETE")

	// Chat
	convs := api.PathPrefix("/conversations").Subrouter()
	convs.Handle("", private(chatController.Index)).Methods("GET")
	convs.Handle("", private(chatController.Start)).Methods("POST")
	convs.Handle("/{id:[0-9]+}", private(chatController.Show)).Methods("GET")
	convs.Handle("/{id:[0-9]+}/messages", private(chatController.Messages)).Methods("GET")
	convs.Handle("/{id:[0-9]+}/messages", private(chatController.Send)).Methods("POST")
	convs.Handle("/{id:[0-9]+}/messages/{messageId:[0-9]+}", private(chatController.Edit)).Methods("PUT")
	convs.Handle("/{id:[0-9]+}/messages/{messageId:[0-9]+}", private(chatController.Delete)).Methods("DELETE")
	convs.Handle("/{id:[0-9]+}/typing", private(chatController.Typing)).Methods("POST")

	// Communities
	communities := api.PathPrefix("/communities").Subrouter()
	communities.Handle("", public(communityController.Index)).Methods("GET")
	communities.Handle("", private(communityController.Create)).Methods("POST")
	communities.Handle("/slug/{slug}", public(communityController.ShowBySlug)).Methods("GET")
	communities.Handle("/{id:[0-9]+}", public(communityController.Show)).Methods("GET")
	communities.Handle("/{id:[0-9]+}", private(communityController.Update)).Methods("PUT")
	communities.Handle("/{id:[0-9]+}", private(communityController.Delete)).Methods("DELETE")
	communities.Handle("/{id:[0-9]+}/join", private(communityController.Join)).Methods("POST")
	communities.Handle("/{id:[0-9]+}/leave", private(communityController.Leave)).Methods("POST")
	communities.Handle("/{id:[0-9]+}/members", public(communityController.Members)).Methods("GET")
	communities.Handle("/{id:[0-9]+}/members/{userId:[0-9]+}/approve", private(communityController.Approve)).Methods("POST")
	communities.Handle("/{id:[0-9]+}/members/{userId:[0-9]+}/role", private(communityController.SetRole)).Methods("PUT")

	// Countries
	api.Handle("/countries", http.HandlerFunc(countryController.Index)).Methods("GET")
	api.Handle("/countries/{code:[A-Za-z]{2}}", http.HandlerFunc(countryController.Show)).Methods("GET")

	// Service directory
	directory := api.PathPrefix("/directory").Subrouter()
	directory.Handle("", public(directoryController.Index)).Methods("GET")
	directory.Handle("", private(directoryController.Create)).Methods("POST")
	directory.Handle("/{id:[0-9]+}", public(directoryController.Show)).Methods("GET")
	directory.Handle("/{id:[0-9]+}", private(directoryController.Update)).Methods("PUT")
	directory.Handle("/{id:[0-9]+}", private(directoryController.Delete)).Methods("DELETE")

	// Notifications
	api.Handle("/notifications", private(notificationController.Index)).Methods("GET")
	api.Handle("/notifications/read-all", private(notificationController.MarkAllRead)).Methods("POST")
	api.Handle("/notifications/{id:[0-9]+}/read", private(notificationController.MarkRead)).Methods("POST")

	// Realtime and system
	api.HandleFunc("/realtime", d.Hub.ServeWS).Methods("GET")
	api.Handle("/presence", private(systemController.Presence)).Methods("GET")
	api.HandleFunc("/metrics", systemController.Metrics).Methods("GET")
	api.HandleFunc("/health", systemController.Health).Methods("GET")

	// Web client assets
	if d.StaticDir != "" {
		router.PathPrefix("/").
			MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool { return !isAPI(r.URL.Path) }).
			Methods("GET", "HEAD").
			Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return router
}

// jsonFallback answers unmatched API requests with a JSON error and
// everything else with plain text.
func jsonFallback(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r.URL.Path) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": message})
			return
		}
		http.Error(w, http.StatusText(status), status)
	})
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
