package blog

import "time"

type Post struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	Slug        string     `bson:"slug" json:"slug"`
	Title       string     `bson:"title" json:"title"`
	Excerpt     string     `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Content     string     `bson:"content" json:"content"`
	Author      string     `bson:"author,omitempty" json:"author,omitempty"`
	Tags        []string   `bson:"tags" json:"tags"`
	CoverImage  string     `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Published   bool       `bson:"published" json:"published"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type UpsertRequest struct {
	Slug       string   `json:"slug" validate:"max=120"`
	Title      string   `json:"title" validate:"required,max=200"`
	Excerpt    string   `json:"excerpt" validate:"max=500"`
	Content    string   `json:"content" validate:"required"`
	Author     string   `json:"author" validate:"max=120"`
	Tags       []string `json:"tags" validate:"max=20,dive,required,max=40"`
	CoverImage string   `json:"coverImage" validate:"omitempty,url"`
	Published  *bool    `json:"published"`
}

type ListFilter struct {
	Tag string
	// PublishedOnly is forced on for public listings.
	PublishedOnly bool
}
