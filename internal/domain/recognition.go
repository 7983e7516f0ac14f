package domain

type Recognition struct {
	Meta
	Title        string `json:"title" validate:"required,max=200"`
	Organization string `json:"organization" validate:"required,max=200"`
	Year         int    `json:"year" validate:"gte=1900,lte=2200"`
	Description  string `json:"description" validate:"max=2000"`
	Image        string `json:"image,omitempty" validate:"omitempty,url"`
	DisplayOrder int    `json:"displayOrder" validate:"gte=0"`
}

func (r *Recognition) DisplayRank() int { return r.DisplayOrder }
