package billing

import (
	"github.com/shopspring/decimal"

	"github.com/tunewave/tunewave/internal/models"
)

// Static plan catalog, prices in BRL.
// Plans are code, not data: changing a price is a deploy, which keeps the
// catalog versioned together with the purchase logic that reads it.
var plans = []models.Plan{
	{
		ID:          "basico",
		Name:        "Básico",
		Description: "Para quem está começando",
		Price:       decimal.NewFromFloat(29.90),
		Credits:     100,
		ValidDays:   30,
	},
	{
		ID:          "intermediario",
		Name:        "Intermediário",
		Description: "Para criadores regulares",
		Price:       decimal.NewFromFloat(49.90),
		Credits:     200,
		ValidDays:   30,
		IsPopular:   true,
	},
	{
		ID:          "avancado",
		Name:        "Avançado",
		Description: "Para produtores frequentes",
		Price:       decimal.NewFromFloat(99.90),
		Credits:     500,
		ValidDays:   30,
	},
	{
		ID:          "premium",
		Name:        "Premium",
		Description: "Para profissionais",
		Price:       decimal.NewFromFloat(199.90),
		Credits:     1200,
		ValidDays:   30,
	},
	{
		ID:          "empresarial",
		Name:        "Empresarial",
		Description: "Para estúdios e equipes",
		Price:       decimal.NewFromFloat(449.90),
		Credits:     3000,
		ValidDays:   30,
	},
}
