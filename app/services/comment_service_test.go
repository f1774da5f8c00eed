package services

import (
	"testing"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService(t *testing.T) {
	env := newTestEnv(t)
	svc := env.comments
	author := env.signup(t, "author", "")
	commenter := env.signup(t, "commenter", "")
	stranger := env.signup(t, "stranger", "")

	post, err := env.posts.CreatePost(author.ID, PostInput{Content: "Discuss"})
	require.NoError(t, err)
	env.pub.reset()

	t.Run("create notifies the post author", func(t *testing.T) {
		c, err := svc.CreateComment(commenter.ID, post.ID, "Agreed")
		require.NoError(t, err)
		assert.NotZero(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())

		got, err := env.store.Posts.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CommentCount)

		feed := env.pub.on(realtime.FeedTopic)
		require.Len(t, feed, 1)
		assert.Equal(t, realtime.TableComments, feed[0].Table)

		count, err := env.notifications.UnreadCount(author.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("own comment does not notify", func(t *testing.T) {
		_, err := svc.CreateComment(author.ID, post.ID, "Thanks all")
		require.NoError(t, err)
		count, err := env.notifications.UnreadCount(author.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("create validates", func(t *testing.T) {
		_, err := svc.CreateComment(commenter.ID, post.ID, "")
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = svc.CreateComment(commenter.ID, 999, "orphan")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("list oldest first", func(t *testing.T) {
		comments, err := svc.ListPostComments(0, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "Agreed", comments[0].Content)
		assert.Equal(t, "Thanks all", comments[1].Content)
	})

	t.Run("update is author only", func(t *testing.T) {
		c, err := svc.CreateComment(commenter.ID, post.ID, "tpyo")
		require.NoError(t, err)

		_, err = svc.UpdateComment(stranger.ID, c.ID, "vandalized")
		assert.ErrorIs(t, err, ErrForbidden)

		updated, err := svc.UpdateComment(commenter.ID, c.ID, "typo")
		require.NoError(t, err)
		assert.Equal(t, "typo", updated.Content)

		got, err := svc.GetComment(stranger.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "typo", got.Content)
	})

	t.Run("delete by comment or post author", func(t *testing.T) {
		first, err := svc.CreateComment(commenter.ID, post.ID, "one")
		require.NoError(t, err)
		second, err := svc.CreateComment(commenter.ID, post.ID, "two")
		require.NoError(t, err)

		before, err := env.store.Posts.GetByID(post.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.DeleteComment(stranger.ID, first.ID), ErrForbidden)
		require.NoError(t, svc.DeleteComment(commenter.ID, first.ID))
		require.NoError(t, svc.DeleteComment(author.ID, second.ID))

		after, err := env.store.Posts.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, before.CommentCount-2, after.CommentCount)

		_, err = svc.GetComment(author.ID, first.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("private community comments", func(t *testing.T) {
		c, err := env.communities.Create(author.ID, CommunityInput{Name: "Closed Room", Visibility: models.VisibilityPrivate})
		require.NoError(t, err)
		p, err := env.posts.CreatePost(author.ID, PostInput{Content: "members only", CommunityID: c.ID})
		require.NoError(t, err)

		_, err = svc.CreateComment(stranger.ID, p.ID, "hello?")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = svc.ListPostComments(stranger.ID, p.ID)
		assert.ErrorIs(t, err, ErrForbidden)

		inside, err := svc.CreateComment(author.ID, p.ID, "inside")
		require.NoError(t, err)
		_, err = svc.GetComment(stranger.ID, inside.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NotEmpty(t, env.pub.on(realtime.CommunityTopic(c.ID)))
	})
}
