package services

import (
	"context"
	"testing"
	"time"

	"github.com/cppla/socialnet/apperr"
)

func TestCommentLifecycle(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	p, err := svc.Posts.Create(ctx, alice.User.ID, PostInput{Content: "post"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.Comments.Create(ctx, bob.User.ID, p.ID, "first")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Comments.Create(ctx, alice.User.ID, p.ID, "second")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	list, err := svc.Comments.ListByPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("comments not newest first: %+v", list)
	}

	post, _ := svc.Posts.Get(ctx, p.ID)
	if post.CommentsCount != 2 || post.Comments[0].ID != first.ID || post.Comments[0].Author.Username != "bob" {
		t.Fatalf("post comments = %+v", post.Comments)
	}

	v, liked, err := svc.Comments.ToggleLike(ctx, alice.User.ID, first.ID)
	if err != nil || !liked || v.LikesCount != 1 || v.Likes[0].Username != "alice" {
		t.Fatalf("like: %+v %v %v", v, liked, err)
	}
	v, liked, err = svc.Comments.ToggleLike(ctx, alice.User.ID, first.ID)
	if err != nil || liked || v.LikesCount != 0 {
		t.Fatalf("unlike: %+v %v %v", v, liked, err)
	}

	_, err = svc.Comments.Update(ctx, alice.User.ID, first.ID, "hijack")
	wantKind(t, err, apperr.Forbidden, "You are not authorized to update this comment")
	upd, err := svc.Comments.Update(ctx, bob.User.ID, first.ID, "edited")
	if err != nil || upd.Content != "edited" {
		t.Fatalf("update: %+v %v", upd, err)
	}
	_, err = svc.Comments.Update(ctx, bob.User.ID, first.ID, "   ")
	wantKind(t, err, apperr.Validation, "")

	err = svc.Comments.Delete(ctx, alice.User.ID, first.ID)
	wantKind(t, err, apperr.Forbidden, "You are not authorized to delete this comment")
	if err := svc.Comments.Delete(ctx, bob.User.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	post, _ = svc.Posts.Get(ctx, p.ID)
	if post.CommentsCount != 1 || post.Comments[0].ID != second.ID {
		t.Fatalf("post comments after delete = %+v", post.Comments)
	}
}

func TestCommentOnMissingPost(t *testing.T) {
	svc := newTestServices(t)
	alice := register(t, svc, "alice")
	_, err := svc.Comments.Create(context.Background(), alice.User.ID, "missing", "hello")
	wantKind(t, err, apperr.NotFound, "Post not found")
}
