package domain

import "time"

type BlogPost struct {
	Meta
	Title       string     `json:"title" validate:"required,min=2,max=200"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt" validate:"max=500"`
	Content     string     `json:"content" validate:"required"`
	Author      string     `json:"author" validate:"max=120"`
	Category    string     `json:"category" validate:"max=80"`
	Tags        []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	CoverImage  string     `json:"coverImage,omitempty" validate:"omitempty,url"`
	ReadMinutes int        `json:"readMinutes" validate:"gte=0,lte=240"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

func (b *BlogPost) SlugSource() string  { return b.Title }
func (b *BlogPost) CurrentSlug() string { return b.Slug }
func (b *BlogPost) SetSlug(s string)    { b.Slug = s }

func (b *BlogPost) DefaultAuthor(name string) {
	if b.Author == "" {
		b.Author = name
	}
}
