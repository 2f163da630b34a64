package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/cppla/socialnet/models"
)

type userDoc struct {
	ID             bson.ObjectID   `bson:"_id"`
	Username       string          `bson:"username"`
	Email          string          `bson:"email"`
	Password       string          `bson:"password"`
	Bio            string          `bson:"bio"`
	ProfilePicture string          `bson:"profilePicture"`
	Provider       string          `bson:"provider,omitempty"`
	ProviderID     string          `bson:"providerId,omitempty"`
	Followers      []bson.ObjectID `bson:"followers"`
	Following      []bson.ObjectID `bson:"following"`
	Posts          []bson.ObjectID `bson:"posts"`
	LikedPosts     []bson.ObjectID `bson:"likedPosts"`
	CreatedAt      time.Time       `bson:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt"`
}

type postDoc struct {
	ID        bson.ObjectID   `bson:"_id"`
	Content   string          `bson:"content"`
	Image     string          `bson:"image"`
	Author    bson.ObjectID   `bson:"author"`
	Likes     []bson.ObjectID `bson:"likes"`
	Comments  []bson.ObjectID `bson:"comments"`
	Tags      []string        `bson:"tags"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

type commentDoc struct {
	ID        bson.ObjectID   `bson:"_id"`
	Content   string          `bson:"content"`
	Author    bson.ObjectID   `bson:"author"`
	Post      bson.ObjectID   `bson:"post"`
	Likes     []bson.ObjectID `bson:"likes"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

func hexes(ids []bson.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// objectIDs parses ids, silently dropping the ones that are not valid ObjectIDs.
func objectIDs(ids []string) []bson.ObjectID {
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func (d *userDoc) toModel() models.User {
	return models.User{
		ID:             d.ID.Hex(),
		Username:       d.Username,
		Email:          d.Email,
		PasswordHash:   d.Password,
		Bio:            d.Bio,
		ProfilePicture: d.ProfilePicture,
		Provider:       d.Provider,
		ProviderID:     d.ProviderID,
		Followers:      hexes(d.Followers),
		Following:      hexes(d.Following),
		Posts:          hexes(d.Posts),
		LikedPosts:     hexes(d.LikedPosts),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (d *postDoc) toModel() models.Post {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Post{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Image:     d.Image,
		Author:    d.Author.Hex(),
		Likes:     hexes(d.Likes),
		Comments:  hexes(d.Comments),
		Tags:      tags,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d *commentDoc) toModel() models.Comment {
	return models.Comment{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Author:    d.Author.Hex(),
		Post:      d.Post.Hex(),
		Likes:     hexes(d.Likes),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
