package services

import (
	"context"
	"testing"

	"github.com/cppla/socialnet/apperr"
)

func TestFollowUnfollowRoundTrip(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")

	v, err := svc.Users.Follow(ctx, alice.User.ID, bob.User.ID)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if len(v.Followers) != 1 || v.Followers[0].ID != alice.User.ID || v.Followers[0].Username != "alice" {
		t.Fatalf("bob followers = %+v", v.Followers)
	}
	me, err := svc.Auth.Me(ctx, alice.User.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if len(me.Following) != 1 || me.Following[0].ID != bob.User.ID {
		t.Fatalf("alice following = %+v", me.Following)
	}

	_, err = svc.Users.Follow(ctx, alice.User.ID, bob.User.ID)
	wantKind(t, err, apperr.Conflict, "You are already following this user")

	v, err = svc.Users.Unfollow(ctx, alice.User.ID, bob.User.ID)
	if err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if len(v.Followers) != 0 {
		t.Fatalf("bob followers after unfollow = %+v", v.Followers)
	}
	me, _ = svc.Auth.Me(ctx, alice.User.ID)
	if len(me.Following) != 0 {
		t.Fatalf("alice following after unfollow = %+v", me.Following)
	}

	_, err = svc.Users.Unfollow(ctx, alice.User.ID, bob.User.ID)
	wantKind(t, err, apperr.NotFollowing, "You are not following this user")
}

func TestFollowErrors(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")

	_, err := svc.Users.Follow(ctx, alice.User.ID, alice.User.ID)
	wantKind(t, err, apperr.SelfReference, "You cannot follow yourself")
	if apperr.Status(apperr.KindOf(err)) != 400 {
		t.Fatalf("self follow status = %d", apperr.Status(apperr.KindOf(err)))
	}

	_, err = svc.Users.Follow(ctx, alice.User.ID, "missing")
	wantKind(t, err, apperr.NotFound, "User not found")
	_, err = svc.Users.Unfollow(ctx, alice.User.ID, "missing")
	wantKind(t, err, apperr.NotFound, "User not found")
}

func TestProfileIsFollowing(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	if _, err := svc.Posts.Create(ctx, bob.User.ID, PostInput{Content: "first"}); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := svc.Users.Follow(ctx, alice.User.ID, bob.User.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}

	p, following, err := svc.Users.Profile(ctx, "bob", alice.User.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !following || len(p.Posts) != 1 || p.Posts[0].Author.Username != "bob" || p.Email != "" {
		t.Fatalf("profile = %+v following=%v", p, following)
	}
	if _, following, _ = svc.Users.Profile(ctx, "bob", ""); following {
		t.Fatal("anonymous viewer reported as following")
	}
	_, _, err = svc.Users.Profile(ctx, "nobody", "")
	wantKind(t, err, apperr.NotFound, "User not found")
}

func TestSearchAndSuggestions(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	register(t, svc, "carol")

	got, err := svc.Users.Search(ctx, "a")
	if err != nil || len(got) != 0 {
		t.Fatalf("short query = %v, %v", got, err)
	}
	got, err = svc.Users.Search(ctx, "CAR")
	if err != nil || len(got) != 1 || got[0].Username != "carol" {
		t.Fatalf("search CAR = %+v, %v", got, err)
	}

	if _, err := svc.Users.Follow(ctx, alice.User.ID, bob.User.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	sugg, err := svc.Users.Suggestions(ctx, alice.User.ID, 0)
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(sugg) != 1 || sugg[0].Username != "carol" {
		t.Fatalf("suggestions = %+v", sugg)
	}
}
