package businessflow

import (
	"testing"

	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/stretchr/testify/assert"
)

func TestMessageRenderer_Render(t *testing.T) {
	renderer := NewMessageRenderer("₹", "en")
	tier := models.CustomerTierPremium

	enriched := models.Recipient{
		Name:              "Asha",
		Phone:             "9998887771",
		Tier:              &tier,
		TotalOrders:       utils.ToPtr(int64(3)),
		LastOrderAmount:   utils.ToPtr(12500.0),
		PreferredProducts: []string{"Silk Saree", "Cotton Kurta"},
	}
	plain := models.Recipient{Name: "Ravi", Phone: "9998887773"}

	tests := []struct {
		name      string
		template  string
		recipient models.Recipient
		want      string
	}{
		{
			name:      "all tokens",
			template:  "Hi {name} ({phone}), our {tier} member with {orderCount} orders. Last: {lastOrderAmount}. Loved: {preferredProducts}",
			recipient: enriched,
			want:      "Hi Asha (9998887771), our Premium member with 3 orders. Last: ₹12,500. Loved: Silk Saree, Cotton Kurta",
		},
		{
			name:      "repeated tokens replaced globally",
			template:  "{name}, {name}!",
			recipient: plain,
			want:      "Ravi, Ravi!",
		},
		{
			name:      "missing enrichment stays literal",
			template:  "Hi {name}, {tier} / {orderCount} / {lastOrderAmount} / {preferredProducts}",
			recipient: plain,
			want:      "Hi Ravi, {tier} / {orderCount} / {lastOrderAmount} / {preferredProducts}",
		},
		{
			name:      "zero order count stays literal",
			template:  "{orderCount}",
			recipient: models.Recipient{TotalOrders: utils.ToPtr(int64(0)), LastOrderAmount: utils.ToPtr(0.0)},
			want:      "{orderCount}",
		},
		{
			name:      "tokens are case sensitive",
			template:  "{Name} {NAME} {name}",
			recipient: plain,
			want:      "{Name} {NAME} Ravi",
		},
		{
			name:      "values are not re-expanded",
			template:  "{name} {phone}",
			recipient: models.Recipient{Name: "{phone}", Phone: "9998887771"},
			want:      "{phone} 9998887771",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderer.Render(tt.template, tt.recipient))
		})
	}
}

func TestMessageRenderer_FormatAmount(t *testing.T) {
	renderer := NewMessageRenderer("", "en")

	assert.Equal(t, "₹12,500", renderer.FormatAmount(12500))
	assert.Equal(t, "₹1,234.57", renderer.FormatAmount(1234.567))
	assert.Equal(t, "₹999.5", renderer.FormatAmount(999.5))

	usd := NewMessageRenderer("$", "not a locale!")
	assert.Equal(t, "$12,500", usd.FormatAmount(12500))
}
