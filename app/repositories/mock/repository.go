// Package mock provides in-memory repositories for controller tests.
package mock

import (
	"sort"
	"sync"

	"rightsnet/app/models"
	"rightsnet/app/repositories"
)

type UserRepository struct {
	users  map[int]*models.User
	nextID int
	mutex  sync.RWMutex
}

type PostRepository struct {
	posts  map[int]*models.Post
	nextID int
	mutex  sync.RWMutex
}

type CommentRepository struct {
	comments map[int]*models.Comment
	nextID   int
	mutex    sync.RWMutex
}

type LikeRepository struct {
	likes map[[2]int]*models.Like
	mutex sync.RWMutex
}

type CommunityRepository struct {
	communities map[int]*models.Community
	nextID      int
	mutex       sync.RWMutex
}

type MembershipRepository struct {
	members map[[2]int]*models.Membership
	mutex   sync.RWMutex
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int]*models.User), nextID: 1}
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[int]*models.Post), nextID: 1}
}

func (m *PostRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[int]*models.Post)
	m.nextID = 1
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{comments: make(map[int]*models.Comment), nextID: 1}
}

func NewLikeRepository() *LikeRepository {
	return &LikeRepository{likes: make(map[[2]int]*models.Like)}
}

func NewCommunityRepository() *CommunityRepository {
	return &CommunityRepository{communities: make(map[int]*models.Community), nextID: 1}
}

func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{members: make(map[[2]int]*models.Membership)}
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// UserRepository implementation
func (m *UserRepository) Create(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	user.ID = m.nextID
	m.nextID++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *UserRepository) GetByID(id int) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *UserRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *UserRepository) GetByEmail(email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *UserRepository) GetByUsername(username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *UserRepository) Update(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.users[user.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	if user.PasswordHash == "" {
		user.PasswordHash = existing.PasswordHash
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *UserRepository) List(limit, offset int) ([]*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var users []*models.User
	for _, u := range m.users {
		cp := *u
		cp.PasswordHash = ""
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return window(users, limit, offset), nil
}

func (m *UserRepository) CountByCountry() (map[string]int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counts := make(map[string]int)
	for _, u := range m.users {
		if u.CountryCode != "" {
			counts[u.CountryCode]++
		}
	}
	return counts, nil
}

// PostRepository implementation
func (m *PostRepository) Create(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post.ID = m.nextID
	m.nextID++
	cp := *post
	cp.Comments = nil
	m.posts[post.ID] = &cp
	return nil
}

func (m *PostRepository) GetByID(id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (m *PostRepository) List(filter repositories.PostFilter, limit, offset int) ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var posts []*models.Post
	for _, p := range m.posts {
		switch {
		case filter.PublicOnly && p.CommunityID != 0,
			filter.CommunityID != 0 && p.CommunityID != filter.CommunityID,
			filter.CountryCode != "" && p.CountryCode != filter.CountryCode,
			filter.AuthorID != 0 && p.AuthorID != filter.AuthorID,
			filter.Tag != "" && !p.HasTag(filter.Tag):
			continue
		}
		cp := *p
		posts = append(posts, &cp)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return window(posts, limit, offset), nil
}

func (m *PostRepository) Update(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.posts[post.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	post.AuthorID = existing.AuthorID
	post.CommunityID = existing.CommunityID
	post.LikeCount = existing.LikeCount
	post.CommentCount = existing.CommentCount
	post.CreatedAt = existing.CreatedAt
	cp := *post
	cp.Comments = nil
	m.posts[post.ID] = &cp
	return nil
}

func (m *PostRepository) ReleaseCommunity(communityID int) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	moved := 0
	for _, p := range m.posts {
		if p.CommunityID == communityID {
			p.CommunityID = 0
			moved++
		}
	}
	return moved, nil
}

func (m *PostRepository) AdjustCounters(id, likeDelta, commentDelta int) (*models.Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	post.LikeCount = max(0, post.LikeCount+likeDelta)
	post.CommentCount = max(0, post.CommentCount+commentDelta)
	cp := *post
	return &cp, nil
}

func (m *PostRepository) Delete(id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *PostRepository) CountByCountry() (map[string]int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counts := make(map[string]int)
	for _, p := range m.posts {
		if p.CountryCode != "" {
			counts[p.CountryCode]++
		}
	}
	return counts, nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	comment.ID = m.nextID
	m.nextID++
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

func (m *CommentRepository) GetByID(id int) (*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	cp := *comment
	return &cp, nil
}

func (m *CommentRepository) ListByPost(postID int) ([]*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var comments []*models.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			cp := *c
			comments = append(comments, &cp)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (m *CommentRepository) Update(comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[comment.ID]; !exists {
		return repositories.ErrNotFound
	}
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

func (m *CommentRepository) Delete(id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *CommentRepository) DeleteByPost(postID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, c := range m.comments {
		if c.PostID == postID {
			delete(m.comments, id)
		}
	}
	return nil
}

// LikeRepository implementation
func (m *LikeRepository) Add(like *models.Like) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := [2]int{like.PostID, like.UserID}
	if _, exists := m.likes[key]; exists {
		return repositories.ErrConflict
	}
	cp := *like
	m.likes[key] = &cp
	return nil
}

func (m *LikeRepository) Remove(postID, userID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := [2]int{postID, userID}
	if _, exists := m.likes[key]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.likes, key)
	return nil
}

func (m *LikeRepository) Exists(postID, userID int) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, exists := m.likes[[2]int{postID, userID}]
	return exists, nil
}

func (m *LikeRepository) DeleteByPost(postID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key := range m.likes {
		if key[0] == postID {
			delete(m.likes, key)
		}
	}
	return nil
}

// CommunityRepository implementation
func (m *CommunityRepository) Create(c *models.Community) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, existing := range m.communities {
		if existing.Slug == c.Slug {
			return repositories.ErrConflict
		}
	}
	c.ID = m.nextID
	m.nextID++
	cp := *c
	m.communities[c.ID] = &cp
	return nil
}

func (m *CommunityRepository) GetByID(id int) (*models.Community, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	c, exists := m.communities[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *CommunityRepository) GetBySlug(slug string) (*models.Community, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, c := range m.communities {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *CommunityRepository) List(filter repositories.CommunityFilter, limit, offset int) ([]*models.Community, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []*models.Community
	for _, c := range m.communities {
		if filter.CountryCode != "" && c.CountryCode != filter.CountryCode {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, limit, offset), nil
}

func (m *CommunityRepository) Update(c *models.Community) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.communities[c.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	c.Slug = existing.Slug
	c.OwnerID = existing.OwnerID
	c.MemberCount = existing.MemberCount
	c.CreatedAt = existing.CreatedAt
	if c.ConversationID == 0 {
		c.ConversationID = existing.ConversationID
	}
	cp := *c
	m.communities[c.ID] = &cp
	return nil
}

func (m *CommunityRepository) AdjustMemberCount(id, delta int) (*models.Community, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, exists := m.communities[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	c.MemberCount = max(0, c.MemberCount+delta)
	cp := *c
	return &cp, nil
}

func (m *CommunityRepository) Delete(id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.communities[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.communities, id)
	return nil
}

func (m *CommunityRepository) CountByCountry() (map[string]int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counts := make(map[string]int)
	for _, c := range m.communities {
		if c.CountryCode != "" {
			counts[c.CountryCode]++
		}
	}
	return counts, nil
}

// MembershipRepository implementation
func (m *MembershipRepository) Add(mem *models.Membership) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := [2]int{mem.CommunityID, mem.UserID}
	if _, exists := m.members[key]; exists {
		return repositories.ErrConflict
	}
	cp := *mem
	m.members[key] = &cp
	return nil
}

func (m *MembershipRepository) Get(communityID, userID int) (*models.Membership, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	mem, exists := m.members[[2]int{communityID, userID}]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *MembershipRepository) Update(mem *models.Membership) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := [2]int{mem.CommunityID, mem.UserID}
	if _, exists := m.members[key]; !exists {
		return repositories.ErrNotFound
	}
	cp := *mem
	m.members[key] = &cp
	return nil
}

func (m *MembershipRepository) Remove(communityID, userID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := [2]int{communityID, userID}
	if _, exists := m.members[key]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.members, key)
	return nil
}

func (m *MembershipRepository) list(match func(*models.Membership) bool) []*models.Membership {
	var out []*models.Membership
	for _, mem := range m.members {
		if match(mem) {
			cp := *mem
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommunityID != out[j].CommunityID {
			return out[i].CommunityID < out[j].CommunityID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (m *MembershipRepository) ListByCommunity(communityID int, status models.MemberStatus) ([]*models.Membership, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.list(func(mem *models.Membership) bool {
		return mem.CommunityID == communityID && (status == "" || mem.Status == status)
	}), nil
}

func (m *MembershipRepository) ListByUser(userID int) ([]*models.Membership, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.list(func(mem *models.Membership) bool { return mem.UserID == userID }), nil
}

func (m *MembershipRepository) DeleteByCommunity(communityID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key := range m.members {
		if key[0] == communityID {
			delete(m.members, key)
		}
	}
	return nil
}

var (
	_ repositories.UserRepository       = (*UserRepository)(nil)
	_ repositories.PostRepository       = (*PostRepository)(nil)
	_ repositories.CommentRepository    = (*CommentRepository)(nil)
	_ repositories.LikeRepository       = (*LikeRepository)(nil)
	_ repositories.CommunityRepository  = (*CommunityRepository)(nil)
	_ repositories.MembershipRepository = (*MembershipRepository)(nil)
)
