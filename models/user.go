package models

import "time"

// User is an account. Passwords are stored as bcrypt hashes only.
// Followers and Following always mirror each other across users.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profilePicture"`
	Provider       string    `json:"-"`
	ProviderID     string    `json:"-"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	Posts          []string  `json:"posts"`
	LikedPosts     []string  `json:"likedPosts"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FollowedBy reports whether the user with id viewer follows u.
func (u *User) FollowedBy(viewer string) bool {
	return viewer != "" && contains(u.Followers, viewer)
}

// Summary is the public shape used wherever a user is embedded in another resource.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// ProfileUpdate carries the optional fields of a profile edit. Nil means unchanged.
type ProfileUpdate struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio,omitempty"`
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
