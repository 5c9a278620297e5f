package billing

const (
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// Plan is one subscription tier as shown on the pricing page.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"` // USD per month
	Items       []string `json:"items"`
	PaymentLink string   `json:"paymentLink"`
	PriceID     string   `json:"priceId"`
	DailyLimit  int      `json:"dailyLimit"`
}

type Catalog struct {
	plans []Plan
}

func NewCatalog(basicPriceID, proPriceID string, basicLimit, proLimit int) *Catalog {
	return &Catalog{plans: []Plan{
		{
			ID:          PlanBasic,
			Name:        "Basic",
			Description: "Perfect for occasional use",
			Price:       9,
			Items: []string{
				"5 summaries per month",
				"Standard Processing Speed",
				"Email Support",
			},
			PaymentLink: "https://buy.stripe.com/test_9B628r0wt1eW8YVbHC97G00",
			PriceID:     basicPriceID,
			DailyLimit:  basicLimit,
		},
		{
			ID:          PlanPro,
			Name:        "Pro",
			Description: "For professionals and teams",
			Price:       19,
			Items: []string{
				"Unlimited PDF summaries",
				"Priority processing",
				"24/7 priority support",
				"Markdown Export",
			},
			PaymentLink: "https://buy.stripe.com/test_8x27sLbb78Ho4IFbHC97G01",
			PriceID:     proPriceID,
			DailyLimit:  proLimit,
		},
	}}
}

func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// PlanForPrice returns the plan billed under priceID. Anything unknown,
// including no subscription at all, gets the basic plan.
func (c *Catalog) PlanForPrice(priceID string) Plan {
	if priceID != "" {
		for _, p := range c.plans {
			if p.PriceID == priceID {
				return p
			}
		}
	}
	return c.plans[0]
}
