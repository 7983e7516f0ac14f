package domain

type Property struct {
	Meta
	Title        string   `json:"title" validate:"required,min=2,max=200"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description" validate:"max=10000"`
	Price        float64  `json:"price" validate:"gte=0"`
	Currency     string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	Location     string   `json:"location" validate:"max=300"`
	City         string   `json:"city,omitempty" validate:"max=120"`
	Bedrooms     int      `json:"bedrooms" validate:"gte=0,lte=100"`
	Bathrooms    float64  `json:"bathrooms" validate:"gte=0,lte=100"`
	Area         float64  `json:"area" validate:"gte=0"`
	PropertyType string   `json:"propertyType" validate:"omitempty,oneof=house apartment condo villa townhouse land commercial penthouse estate"`
	Status       string   `json:"status" validate:"omitempty,oneof=for-sale for-rent sold pending"`
	Images       []string `json:"images,omitempty" validate:"omitempty,max=50,dive,url"`
	Amenities    []string `json:"amenities,omitempty" validate:"omitempty,max=60,dive,max=80"`
}

func (p *Property) SlugSource() string  { return p.Title }
func (p *Property) CurrentSlug() string { return p.Slug }
func (p *Property) SetSlug(s string)    { p.Slug = s }
