// Package storetest is a behavioural suite that every store.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/cppla/socialnet/models"
	"github.com/cppla/socialnet/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserUniqueness", testUserUniqueness},
		{"UserLookups", testUserLookups},
		{"UpdateProfile", testUpdateProfile},
		{"FollowRoundTrip", testFollowRoundTrip},
		{"FollowErrors", testFollowErrors},
		{"PostLifecycle", testPostLifecycle},
		{"ListPostsNewestFirst", testListPosts},
		{"TogglePostLikeTwice", testTogglePostLike},
		{"CommentLifecycle", testCommentLifecycle},
		{"CommentOnMissingPost", testCommentOnMissingPost},
		{"DeletePostCascades", testDeletePostCascades},
		{"SearchUsers", testSearchUsers},
		{"SuggestUsers", testSuggestUsers},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func mustUser(t *testing.T, s store.Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	if u.ID == "" {
		t.Fatalf("create user %s: no id assigned", name)
	}
	return u
}

func mustPost(t *testing.T, s store.Store, author *models.User, content string) *models.Post {
	t.Helper()
	p := &models.Post{Author: author.ID, Content: content, Tags: []string{"go"}}
	if err := s.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func mustComment(t *testing.T, s store.Store, author *models.User, post *models.Post, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{Author: author.ID, Post: post.ID, Content: content}
	if err := s.CreateComment(context.Background(), c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

func reload(t *testing.T, s store.Store, id string) *models.User {
	t.Helper()
	u, err := s.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user %s: %v", id, err)
	}
	return u
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func testUserUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustUser(t, s, "alice99")

	dupName := &models.User{Username: "alice99", Email: "other@example.com"}
	if err := s.CreateUser(ctx, dupName); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate username: got %v, want ErrDuplicate", err)
	}
	dupEmail := &models.User{Username: "alice_two", Email: "alice99@example.com"}
	if err := s.CreateUser(ctx, dupEmail); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
	}
	if n, err := s.CountUsers(ctx); err != nil || n != 1 {
		t.Fatalf("CountUsers = %d, %v; want 1", n, err)
	}
}

func testUserLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice99")
	bob := mustUser(t, s, "bobby")

	if u, err := s.GetUserByUsername(ctx, "alice99"); err != nil || u.ID != alice.ID {
		t.Fatalf("GetUserByUsername: %v %v", u, err)
	}
	if _, err := s.GetUserByUsername(ctx, "ALICE99"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("username lookup must be case-sensitive, got %v", err)
	}
	if u, err := s.GetUserByEmail(ctx, "bobby@example.com"); err != nil || u.ID != bob.ID {
		t.Fatalf("GetUserByEmail: %v %v", u, err)
	}
	if _, err := s.GetUserByID(ctx, "does-not-exist"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetUserByID(bad) = %v, want ErrNotFound", err)
	}
	users, err := s.GetUsersByIDs(ctx, []string{alice.ID, bob.ID, "does-not-exist"})
	if err != nil || len(users) != 2 {
		t.Fatalf("GetUsersByIDs = %d users, %v", len(users), err)
	}

	if err := s.LinkProvider(ctx, bob.ID, "github", "42"); err != nil {
		t.Fatalf("LinkProvider: %v", err)
	}
	if u, err := s.GetUserByProvider(ctx, "github", "42"); err != nil || u.ID != bob.ID {
		t.Fatalf("GetUserByProvider: %v %v", u, err)
	}
}

func testUpdateProfile(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice99")
	mustUser(t, s, "bobby")

	bio := "hello"
	u, err := s.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Bio: &bio})
	if err != nil || u.Bio != "hello" || u.Username != "alice99" {
		t.Fatalf("UpdateProfile bio: %+v %v", u, err)
	}
	taken := "bobby"
	if _, err := s.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Username: &taken}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("rename to taken username: got %v, want ErrDuplicate", err)
	}
}

func testFollowRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")

	if err := s.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	a2, b2 := reload(t, s, a.ID), reload(t, s, b.ID)
	if !sameSet(a2.Following, []string{b.ID}) || !sameSet(b2.Followers, []string{a.ID}) {
		t.Fatalf("edge not symmetric: a.following=%v b.followers=%v", a2.Following, b2.Followers)
	}
	if len(a2.Followers) != 0 || len(b2.Following) != 0 {
		t.Fatalf("reverse edge appeared: a.followers=%v b.following=%v", a2.Followers, b2.Following)
	}

	if err := s.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	a3, b3 := reload(t, s, a.ID), reload(t, s, b.ID)
	if len(a3.Following) != 0 || len(b3.Followers) != 0 {
		t.Fatalf("unfollow left state: a.following=%v b.followers=%v", a3.Following, b3.Followers)
	}
}

func testFollowErrors(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")
	ghost := "000000000000000000000000"

	if err := s.Follow(ctx, a.ID, ghost); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("follow missing: %v", err)
	}
	if err := s.Unfollow(ctx, a.ID, ghost); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unfollow missing: %v", err)
	}
	if err := s.Unfollow(ctx, a.ID, b.ID); !errors.Is(err, store.ErrNotFollowing) {
		t.Fatalf("unfollow without edge: %v", err)
	}
	if err := s.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := s.Follow(ctx, a.ID, b.ID); !errors.Is(err, store.ErrAlreadyFollowing) {
		t.Fatalf("second follow: %v", err)
	}
	if b2 := reload(t, s, b.ID); len(b2.Followers) != 1 {
		t.Fatalf("duplicate follower recorded: %v", b2.Followers)
	}
}

func testPostLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	p := mustPost(t, s, a, "first")

	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("post not initialised: %+v", p)
	}
	if got := reload(t, s, a.ID); !sameSet(got.Posts, []string{p.ID}) {
		t.Fatalf("author.posts = %v", got.Posts)
	}

	p.Content = "edited"
	p.Tags = []string{"x", "y"}
	if err := s.UpdatePost(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "edited" || !sameSet(got.Tags, []string{"x", "y"}) || got.Author != a.ID {
		t.Fatalf("after update: %+v", got)
	}

	ghost := &models.Post{Author: "000000000000000000000000", Content: "orphan"}
	if err := s.CreatePost(ctx, ghost); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post by missing author: %v", err)
	}
	if n, _ := s.CountPosts(ctx); n != 1 {
		t.Fatalf("CountPosts = %d, want 1", n)
	}
}

func testListPosts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")
	var ids []string
	for i := 0; i < 5; i++ {
		author := a
		if i%2 == 1 {
			author = b
		}
		ids = append(ids, mustPost(t, s, author, fmt.Sprintf("post %d", i)).ID)
		time.Sleep(2 * time.Millisecond)
	}

	page, total, err := s.ListPosts(ctx, 0, 2)
	if err != nil || total != 5 || len(page) != 2 {
		t.Fatalf("ListPosts page 1: len=%d total=%d err=%v", len(page), total, err)
	}
	if page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Fatalf("not newest first: %s %s", page[0].ID, page[1].ID)
	}
	last, _, err := s.ListPosts(ctx, 4, 2)
	if err != nil || len(last) != 1 || last[0].ID != ids[0] {
		t.Fatalf("last page: %v %v", last, err)
	}

	mine, err := s.ListPostsByAuthor(ctx, a.ID)
	if err != nil || len(mine) != 3 || mine[0].ID != ids[4] {
		t.Fatalf("ListPostsByAuthor: %d %v", len(mine), err)
	}
}

func testTogglePostLike(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")
	p := mustPost(t, s, a, "hello")

	liked, err := s.TogglePostLike(ctx, p.ID, b.ID)
	if err != nil || !liked {
		t.Fatalf("first toggle: liked=%v err=%v", liked, err)
	}
	got, _ := s.GetPost(ctx, p.ID)
	if !sameSet(got.Likes, []string{b.ID}) {
		t.Fatalf("likes = %v", got.Likes)
	}
	if u := reload(t, s, b.ID); !sameSet(u.LikedPosts, []string{p.ID}) {
		t.Fatalf("likedPosts mirror = %v", u.LikedPosts)
	}

	liked, err = s.TogglePostLike(ctx, p.ID, b.ID)
	if err != nil || liked {
		t.Fatalf("second toggle: liked=%v err=%v", liked, err)
	}
	got, _ = s.GetPost(ctx, p.ID)
	if len(got.Likes) != 0 {
		t.Fatalf("likes after unlike = %v", got.Likes)
	}
	if u := reload(t, s, b.ID); len(u.LikedPosts) != 0 {
		t.Fatalf("likedPosts after unlike = %v", u.LikedPosts)
	}

	if _, err := s.TogglePostLike(ctx, "000000000000000000000000", b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("like missing post: %v", err)
	}
}

func testCommentLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")
	p := mustPost(t, s, a, "hello")

	c1 := mustComment(t, s, b, p, "one")
	time.Sleep(2 * time.Millisecond)
	c2 := mustComment(t, s, a, p, "two")

	got, _ := s.GetPost(ctx, p.ID)
	if len(got.Comments) != 2 || got.Comments[0] != c1.ID || got.Comments[1] != c2.ID {
		t.Fatalf("post.comments = %v, want [%s %s]", got.Comments, c1.ID, c2.ID)
	}

	listed, err := s.ListCommentsByPosts(ctx, []string{p.ID})
	if err != nil || len(listed) != 2 || listed[0].ID != c1.ID {
		t.Fatalf("ListCommentsByPosts: %v %v", listed, err)
	}

	upd, err := s.UpdateComment(ctx, c1.ID, "uno")
	if err != nil || upd.Content != "uno" || upd.Post != p.ID {
		t.Fatalf("UpdateComment: %+v %v", upd, err)
	}

	liked, err := s.ToggleCommentLike(ctx, c1.ID, a.ID)
	if err != nil || !liked {
		t.Fatalf("comment like: %v %v", liked, err)
	}
	if c, _ := s.GetComment(ctx, c1.ID); !sameSet(c.Likes, []string{a.ID}) {
		t.Fatalf("comment likes = %v", c.Likes)
	}
	if liked, _ := s.ToggleCommentLike(ctx, c1.ID, a.ID); liked {
		t.Fatal("second comment toggle should unlike")
	}

	if err := s.DeleteComment(ctx, c1.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if _, err := s.GetComment(ctx, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted comment still readable: %v", err)
	}
	got, _ = s.GetPost(ctx, p.ID)
	if !sameSet(got.Comments, []string{c2.ID}) {
		t.Fatalf("post.comments after delete = %v", got.Comments)
	}
	if err := s.DeleteComment(ctx, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func testCommentOnMissingPost(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	p := mustPost(t, s, a, "soon gone")
	if err := s.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c := &models.Comment{Author: a.ID, Post: p.ID, Content: "late"}
	if err := s.CreateComment(ctx, c); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("comment on deleted post: %v", err)
	}
	if n, _ := s.CountComments(ctx); n != 0 {
		t.Fatalf("orphan comment stored, count=%d", n)
	}
}

func testDeletePostCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")
	p := mustPost(t, s, a, "doomed")
	keep := mustPost(t, s, a, "kept")
	mustComment(t, s, b, p, "c1")
	mustComment(t, s, a, p, "c2")
	kc := mustComment(t, s, b, keep, "stays")
	if _, err := s.TogglePostLike(ctx, p.ID, b.ID); err != nil {
		t.Fatalf("like: %v", err)
	}

	if err := s.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := s.GetPost(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetPost after delete = %v, want ErrNotFound", err)
	}
	left, err := s.ListCommentsByPosts(ctx, []string{p.ID, keep.ID})
	if err != nil || len(left) != 1 || left[0].ID != kc.ID {
		t.Fatalf("comments after cascade: %v %v", left, err)
	}
	if u := reload(t, s, a.ID); !sameSet(u.Posts, []string{keep.ID}) {
		t.Fatalf("author.posts = %v", u.Posts)
	}
	if u := reload(t, s, b.ID); len(u.LikedPosts) != 0 {
		t.Fatalf("likedPosts still references deleted post: %v", u.LikedPosts)
	}
	if err := s.DeletePost(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func testSearchUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustUser(t, s, "alice99")
	mustUser(t, s, "Alicia")
	mustUser(t, s, "bobby")
	mustUser(t, s, "abc_def")

	got, err := s.SearchUsers(ctx, "ALI", 10)
	if err != nil || len(got) != 2 {
		t.Fatalf("SearchUsers(ALI) = %d, %v", len(got), err)
	}
	if got, _ := s.SearchUsers(ctx, "a.c", 10); len(got) != 0 {
		t.Fatalf("metacharacters must match literally, got %d", len(got))
	}
	if got, _ := s.SearchUsers(ctx, "c_d", 10); len(got) != 1 {
		t.Fatalf("underscore must match literally, got %d", len(got))
	}
	if got, _ := s.SearchUsers(ctx, "example.com", 3); len(got) != 3 {
		t.Fatalf("limit not applied, got %d", len(got))
	}
}

func testSuggestUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "alice99")
	b := mustUser(t, s, "bobby")
	c := mustUser(t, s, "carol")
	if err := s.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	got, err := s.SuggestUsers(ctx, a.ID, 10)
	if err != nil || len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("SuggestUsers = %v, %v", got, err)
	}
}
