package model

import "autosnap/pkg/docstore"

// Service is an offer of a service center. Price is in whole currency units.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Duration    int    `json:"duration" validate:"required,min=1,max=1440"`
	Price       int    `json:"price" validate:"min=0"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

func ServiceFromDocument(doc *docstore.Document) *Service {
	f := doc.Data
	return &Service{
		ID:          doc.Key(),
		Name:        f.String("name"),
		Duration:    f.Int("duration"),
		Price:       f.Int("price"),
		Description: f.String("description"),
	}
}

func (s *Service) Fields() map[string]any {
	return map[string]any{
		"name":        s.Name,
		"duration":    s.Duration,
		"price":       s.Price,
		"description": s.Description,
	}
}
