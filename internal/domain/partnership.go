package domain

type Partnership struct {
	Meta
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	Logo         string `json:"logo,omitempty" validate:"omitempty,url"`
	Website      string `json:"website,omitempty" validate:"omitempty,url"`
	Category     string `json:"category" validate:"max=80"`
	DisplayOrder int    `json:"displayOrder" validate:"gte=0"`
}

func (p *Partnership) DisplayRank() int { return p.DisplayOrder }
