package domain

type Testimonial struct {
	Meta
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"max=120"`
	Content  string `json:"content" validate:"required,max=4000"`
	Rating   int    `json:"rating" validate:"gte=1,lte=5"`
	Avatar   string `json:"avatar,omitempty" validate:"omitempty,url"`
	Location string `json:"location,omitempty" validate:"max=120"`
}
