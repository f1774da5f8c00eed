package services

import (
	"testing"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService(t *testing.T) {
	env := newTestEnv(t)
	svc := env.posts
	author := env.signup(t, "author", "KE")
	reader := env.signup(t, "reader", "")

	t.Run("create post", func(t *testing.T) {
		post, err := svc.CreatePost(author.ID, PostInput{Content: "Know your rights", Tags: []string{"#Asylum", "asylum"}})
		require.NoError(t, err)
		assert.NotZero(t, post.ID)
		assert.Equal(t, "KE", post.CountryCode, "country defaults to the author's")
		assert.Equal(t, []string{"asylum"}, post.Tags)
		assert.False(t, post.CreatedAt.IsZero())

		feed := env.pub.on(realtime.FeedTopic)
		require.Len(t, feed, 1)
		assert.Equal(t, realtime.Insert, feed[0].Type)
	})

	t.Run("create rejects invalid post", func(t *testing.T) {
		_, err := svc.CreatePost(author.ID, PostInput{Content: ""})
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = svc.CreatePost(author.ID, PostInput{Content: "x", MediaURL: "not a url"})
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = svc.CreatePost(999, PostInput{Content: "ghost"})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("country code is normalized", func(t *testing.T) {
		post, err := svc.CreatePost(reader.ID, PostInput{Content: "Checkpoint update", CountryCode: " ug"})
		require.NoError(t, err)
		assert.Equal(t, "UG", post.CountryCode)

		stats, err := env.countries.Get("UG")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Posts)

		posts, err := svc.ListFeed(0, repositories.PostFilter{CountryCode: "ug"}, 1, 10)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, post.ID, posts[0].ID)
	})

	t.Run("get post with comments", func(t *testing.T) {
		post, err := svc.CreatePost(author.ID, PostInput{Content: "With comments"})
		require.NoError(t, err)
		_, err = env.comments.CreateComment(reader.ID, post.ID, "Thanks!")
		require.NoError(t, err)

		got, err := svc.GetPost(0, post.ID)
		require.NoError(t, err)
		require.Len(t, got.Comments, 1)
		assert.Equal(t, 1, got.CommentCount)
	})

	t.Run("update is author only", func(t *testing.T) {
		post, err := svc.CreatePost(author.ID, PostInput{Content: "Original"})
		require.NoError(t, err)

		_, err = svc.UpdatePost(reader.ID, post.ID, PostInput{Content: "Hijacked"})
		assert.ErrorIs(t, err, ErrForbidden)

		env.pub.reset()
		updated, err := svc.UpdatePost(author.ID, post.ID, PostInput{Content: "Edited"})
		require.NoError(t, err)
		assert.Equal(t, "Edited", updated.Content)
		assert.True(t, post.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, !updated.UpdatedAt.Before(post.UpdatedAt))

		changes := env.pub.on(realtime.FeedTopic)
		require.Len(t, changes, 1)
		assert.Equal(t, realtime.Update, changes[0].Type)
		assert.Equal(t, "Original", changes[0].Old.(*models.Post).Content)
	})

	t.Run("delete cascades", func(t *testing.T) {
		post, err := svc.CreatePost(author.ID, PostInput{Content: "Doomed"})
		require.NoError(t, err)
		_, err = env.comments.CreateComment(reader.ID, post.ID, "first")
		require.NoError(t, err)
		_, err = svc.Like(reader.ID, post.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.DeletePost(reader.ID, post.ID), ErrForbidden)
		require.NoError(t, svc.DeletePost(author.ID, post.ID))

		_, err = svc.GetPost(0, post.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		comments, err := env.store.Comments.ListByPost(post.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
		liked, err := svc.HasLiked(reader.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, liked)
	})

	t.Run("like and unlike", func(t *testing.T) {
		post, err := svc.CreatePost(author.ID, PostInput{Content: "Like me"})
		require.NoError(t, err)

		liked, err := svc.Like(reader.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, liked.LikeCount)

		_, err = svc.Like(reader.ID, post.ID)
		assert.ErrorIs(t, err, repositories.ErrConflict)

		// liking your own post does not notify
		_, err = svc.Like(author.ID, post.ID)
		require.NoError(t, err)

		notes, err := env.notifications.List(author.ID, false, 1, 50)
		require.NoError(t, err)
		likes := 0
		for _, n := range notes {
			if n.Kind == models.NotifyLike && n.SubjectID == post.ID {
				likes++
				assert.Equal(t, reader.ID, n.ActorID)
			}
		}
		assert.Equal(t, 1, likes)

		unliked, err := svc.Unlike(reader.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, unliked.LikeCount)

		_, err = svc.Unlike(reader.ID, post.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestPostServiceCommunities(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "owner", "UG")
	member := env.signup(t, "member", "")
	outsider := env.signup(t, "outsider", "")

	private, err := env.communities.Create(owner.ID, CommunityInput{Name: "Safe Circle", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)
	_, err = env.communities.Join(member.ID, private.ID)
	require.NoError(t, err)
	_, err = env.communities.Approve(owner.ID, private.ID, member.ID)
	require.NoError(t, err)

	t.Run("members only", func(t *testing.T) {
		_, err := env.posts.CreatePost(outsider.ID, PostInput{Content: "let me in", CommunityID: private.ID})
		assert.ErrorIs(t, err, ErrForbidden)

		post, err := env.posts.CreatePost(member.ID, PostInput{Content: "inside", CommunityID: private.ID})
		require.NoError(t, err)

		_, err = env.posts.GetPost(outsider.ID, post.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = env.posts.ListFeed(outsider.ID, repositories.PostFilter{CommunityID: private.ID}, 1, 10)
		assert.ErrorIs(t, err, ErrForbidden)

		posts, err := env.posts.ListFeed(member.ID, repositories.PostFilter{CommunityID: private.ID}, 1, 10)
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		var postChanges int
		for _, c := range env.pub.on(realtime.CommunityTopic(private.ID)) {
			if c.Table == realtime.TablePosts {
				postChanges++
			}
		}
		assert.Equal(t, 1, postChanges)
		for _, c := range env.pub.on(realtime.FeedTopic) {
			assert.NotEqual(t, realtime.TablePosts, c.Table, "private posts stay off the feed")
		}
	})

	t.Run("public feed excludes community posts", func(t *testing.T) {
		_, err := env.posts.CreatePost(outsider.ID, PostInput{Content: "public"})
		require.NoError(t, err)

		posts, err := env.posts.ListFeed(0, repositories.PostFilter{}, 1, 10)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "public", posts[0].Content)
	})

	t.Run("public community posts stay on the community topic", func(t *testing.T) {
		forum, err := env.communities.Create(owner.ID, CommunityInput{Name: "Open Forum"})
		require.NoError(t, err)
		env.pub.reset()

		post, err := env.posts.CreatePost(owner.ID, PostInput{Content: "welcome", CommunityID: forum.ID})
		require.NoError(t, err)
		assert.Len(t, env.pub.on(realtime.CommunityTopic(forum.ID)), 1)
		assert.Empty(t, env.pub.on(realtime.FeedTopic))

		feed, err := env.posts.ListFeed(0, repositories.PostFilter{}, 1, 50)
		require.NoError(t, err)
		for _, p := range feed {
			assert.NotEqual(t, post.ID, p.ID)
		}
	})

	t.Run("update keeps counters", func(t *testing.T) {
		post, err := env.posts.CreatePost(member.ID, PostInput{Content: "popular", CommunityID: private.ID})
		require.NoError(t, err)
		_, err = env.posts.Like(owner.ID, post.ID)
		require.NoError(t, err)

		edited, err := env.posts.UpdatePost(member.ID, post.ID, PostInput{Content: "popular, edited"})
		require.NoError(t, err)
		assert.Equal(t, 1, edited.LikeCount)
		assert.Equal(t, private.ID, edited.CommunityID)
	})

	t.Run("moderator may delete", func(t *testing.T) {
		post, err := env.posts.CreatePost(member.ID, PostInput{Content: "off topic", CommunityID: private.ID})
		require.NoError(t, err)
		assert.NoError(t, env.posts.DeletePost(owner.ID, post.ID))
	})
}
