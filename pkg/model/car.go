package model

import "autosnap/pkg/docstore"

type Car struct {
	ID           string  `json:"id"`
	Brand        string  `json:"brand" validate:"required,min=1,max=50"`
	Model        string  `json:"model" validate:"required,min=1,max=50"`
	Year         int     `json:"year" validate:"omitempty,min=1900,max=2100"`
	EngineVolume float64 `json:"engineVolume" validate:"omitempty,min=0,max=20"`
	HorsePower   int     `json:"horsePower" validate:"omitempty,min=0,max=3000"`
}

func CarFromDocument(doc *docstore.Document) *Car {
	f := doc.Data
	return &Car{
		ID:           doc.Key(),
		Brand:        f.String("brand"),
		Model:        f.String("model"),
		Year:         f.Int("year"),
		EngineVolume: f.Float("engineVolume"),
		HorsePower:   f.Int("horsePower"),
	}
}

func (c *Car) Fields() map[string]any {
	return map[string]any{
		"brand":        c.Brand,
		"model":        c.Model,
		"year":         c.Year,
		"engineVolume": c.EngineVolume,
		"horsePower":   c.HorsePower,
	}
}
