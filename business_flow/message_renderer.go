package businessflow

import (
	"strconv"
	"strings"

	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/utils"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholders understood by the renderer
const (
	TokenName              = "{name}"
	TokenPhone             = "{phone}"
	TokenTier              = "{tier}"
	TokenOrderCount        = "{orderCount}"
	TokenLastOrderAmount   = "{lastOrderAmount}"
	TokenPreferredProducts = "{preferredProducts}"
)

// MessageRenderer personalizes a campaign template for one recipient
type MessageRenderer interface {
	Render(template string, recipient models.Recipient) string
}

// TemplateRenderer implements MessageRenderer with literal token replacement
type TemplateRenderer struct {
	currencySymbol string
	printer        *message.Printer
}

// NewMessageRenderer creates a renderer that formats amounts for locale, e.g. "en-IN"
func NewMessageRenderer(currencySymbol, locale string) *TemplateRenderer {
	if currencySymbol == "" {
		currencySymbol = utils.DefaultCurrencySymbol
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &TemplateRenderer{
		currencySymbol: currencySymbol,
		printer:        message.NewPrinter(tag),
	}
}

// Render replaces every occurrence of the known tokens. Tokens whose value is
// unknown for this recipient are left in place.
func (r *TemplateRenderer) Render(template string, recipient models.Recipient) string {
	pairs := []string{
		TokenName, recipient.Name,
		TokenPhone, recipient.Phone,
	}
	if recipient.Tier != nil && *recipient.Tier != "" {
		pairs = append(pairs, TokenTier, string(*recipient.Tier))
	}
	if recipient.TotalOrders != nil && *recipient.TotalOrders > 0 {
		pairs = append(pairs, TokenOrderCount, strconv.FormatInt(*recipient.TotalOrders, 10))
	}
	if recipient.LastOrderAmount != nil && *recipient.LastOrderAmount > 0 {
		pairs = append(pairs, TokenLastOrderAmount, r.FormatAmount(*recipient.LastOrderAmount))
	}
	if len(recipient.PreferredProducts) > 0 {
		pairs = append(pairs, TokenPreferredProducts, strings.Join(recipient.PreferredProducts, ", "))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// FormatAmount renders amount with the currency symbol, digit grouping and at most two decimals
func (r *TemplateRenderer) FormatAmount(amount float64) string {
	return r.currencySymbol + r.printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}
