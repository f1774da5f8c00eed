package services

import (
	"sync"
	"testing"
	"time"

	"rightsnet/app/auth"
	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recorder is a Publisher that keeps every change.
type recorder struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recorder) Publish(c realtime.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) on(topic string) []realtime.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Change
	for _, c := range r.changes {
		if c.Topic == topic {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = nil
}

type testEnv struct {
	store         *repositories.Store
	pub           *recorder
	auth          *AuthService
	posts         *PostService
	comments      *CommentService
	chat          *ChatService
	communities   *CommunityService
	countries     *CountryService
	directory     *DirectoryService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := repositories.NewTestStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &recorder{}
	access := NewAccess(store.Communities, store.Memberships)
	notifications := NewNotificationService(store.Notifications).WithPublisher(pub)

	return &testEnv{
		store:         store,
		pub:           pub,
		auth:          NewAuthService(store.Users, auth.NewTokenIssuer("test-secret", time.Hour), bcrypt.MinCost),
		posts:         NewPostService(store.Posts, store.Comments, store.Likes, store.Users, access).WithEvents(pub, notifications),
		comments:      NewCommentService(store.Comments, store.Posts, access).WithEvents(pub, notifications),
		chat:          NewChatService(store.Conversations, store.Messages, store.Users, access).WithEvents(pub, notifications),
		communities:   NewCommunityService(store.Communities, store.Memberships, store.Conversations, store.Messages, store.Posts, store.Comments, store.Likes, access).WithEvents(pub, notifications),
		countries:     NewCountryService(store.Users, store.Posts, store.Communities, store.Listings),
		directory:     NewDirectoryService(store.Listings, store.Users),
		notifications: notifications,
	}
}

func (e *testEnv) signup(t *testing.T, username, country string) *models.User {
	t.Helper()
	s, err := e.auth.Signup(SignupInput{
		Email:       username + "@example.org",
		Username:    username,
		Password:    "password123",
		CountryCode: country,
	})
	require.NoError(t, err)
	return s.User
}

func (e *testEnv) organization(t *testing.T, username, country string) *models.User {
	t.Helper()
	s, err := e.auth.Signup(SignupInput{
		Email:       username + "@example.org",
		Username:    username,
		Password:    "password123",
		CountryCode: country,
		AccountType: models.AccountOrganization,
	})
	require.NoError(t, err)
	return s.User
}
