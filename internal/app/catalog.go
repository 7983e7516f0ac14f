package app

import (
	"context"

	"brokerage_site/internal/domain"
)

// Key prefixes of the prefix-addressed collections.
const (
	PropertyPrefix    = "property:"
	BlogPostPrefix    = "blog:post:"
	TestimonialPrefix = "testimonial:"
	RecognitionPrefix = "recognition:"
	PartnershipPrefix = "partnership:"
)

type (
	Properties   = Collection[domain.Property, *domain.Property]
	BlogPosts    = Collection[domain.BlogPost, *domain.BlogPost]
	Testimonials = Collection[domain.Testimonial, *domain.Testimonial]
	Recognitions = Collection[domain.Recognition, *domain.Recognition]
	Partnerships = Collection[domain.Partnership, *domain.Partnership]
)

// Catalog groups the five content collections sharing one KV store.
type Catalog struct {
	Properties   *Properties
	BlogPosts    *BlogPosts
	Testimonials *Testimonials
	Recognitions *Recognitions
	Partnerships *Partnerships
}

func NewCatalog(kv domain.KVStore, opts ...CollectionOption) *Catalog {
	return &Catalog{
		Properties:   NewCollection[domain.Property, *domain.Property](kv, PropertyPrefix, "properties", "Property", SeedProperties(), opts...),
		BlogPosts:    NewCollection[domain.BlogPost, *domain.BlogPost](kv, BlogPostPrefix, "blog_posts", "Blog post", SeedBlogPosts(), opts...),
		Testimonials: NewCollection[domain.Testimonial, *domain.Testimonial](kv, TestimonialPrefix, "testimonials", "Testimonial", SeedTestimonials(), opts...),
		Recognitions: NewCollection[domain.Recognition, *domain.Recognition](kv, RecognitionPrefix, "recognitions", "Recognition", SeedRecognitions(), opts...),
		Partnerships: NewCollection[domain.Partnership, *domain.Partnership](kv, PartnershipPrefix, "partnerships", "Partnership", SeedPartnerships(), opts...),
	}
}

// SeedTarget is the part of a collection the seeder drives.
type SeedTarget interface {
	Entity() string
	Count(ctx context.Context) (int, error)
	InsertSeed(ctx context.Context) (inserted, failed int)
	Purge(ctx context.Context) (int, error)
}

// Targets lists the collections in seeding order.
func (c *Catalog) Targets() []SeedTarget {
	return []SeedTarget{c.Properties, c.Testimonials, c.BlogPosts, c.Recognitions, c.Partnerships}
}
