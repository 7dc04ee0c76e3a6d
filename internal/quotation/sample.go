package quotation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sample returns the demonstration quotation used by /report/sample and the seed script.
func Sample(clientName string, now time.Time) Quotation {
	if clientName == "" {
		clientName = "Client"
	}
	return Quotation{
		QuotationID: "QT-00123",
		Category:    "Web Development",
		Company: CompanyProfile{
			Name:    "Mbivu Tech",
			Email:   "info@mbivutech.com",
			Phone:   "+254 712 345678",
			Website: "https://mbivutech.com",
			Slogan:  "Innovating the Future",
		},
		Client: ClientProfile{
			Name:    clientName,
			Email:   "client@example.com",
			Phone:   "+254 701 234567",
			Website: "https://clientsite.com",
		},
		Items: []Item{
			{Name: "Website Design", Quantity: 1, UnitPrice: decimal.NewFromInt(500), TaxPercent: decimal.NewFromInt(10), Notes: "Responsive UI, CMS integration"},
			{Name: "Hosting", Quantity: 1, UnitPrice: decimal.NewFromInt(100), TaxPercent: decimal.NewFromInt(5), Notes: "1-year hosting included"},
		},
		CreatedAt: now,
	}
}
