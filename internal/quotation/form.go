package quotation

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Builder actions posted by the form's buttons.
const (
	ActionAddItem     = "add_item"
	ActionRemoveItem  = "remove_item"
	ActionRecalculate = "recalculate"
	ActionSubmit      = "submit"
)

// ItemForm holds the raw inputs of one line.
type ItemForm struct {
	Name       string `field:"name" validate:"required,max=200"`
	Quantity   string `field:"quantity" validate:"quantity,quantity_max"`
	UnitPrice  string `field:"unit_price" validate:"amount,price"`
	TaxPercent string `field:"tax_percent" validate:"amount,percent"`
	Notes      string `field:"notes" validate:"max=1000"`
}

// Amounts computes the line using lenient parsing, so partially typed
// input previews as zero instead of failing.
func (f ItemForm) Amounts() LineAmounts {
	return CalculateLine(ParseAmount(f.UnitPrice), ParseQuantity(f.Quantity), ParseAmount(f.TaxPercent))
}

// Form is the builder state as typed by the user.
type Form struct {
	QuotationID    string     `field:"quotation_id" validate:"required,max=64"`
	Category       string     `field:"category" validate:"max=120"`
	CompanyName    string     `field:"company_name" validate:"required,max=200"`
	CompanyEmail   string     `field:"company_email" validate:"required,email,max=254"`
	CompanyPhone   string     `field:"company_phone" validate:"max=40"`
	CompanyWebsite string     `field:"company_website" validate:"required,url,max=500"`
	CompanySlogan  string     `field:"company_slogan" validate:"max=200"`
	CompanyLogoURL string     `field:"company_logo_url" validate:"omitempty,url,max=1000"`
	ClientName     string     `field:"client_name" validate:"max=200"`
	ClientEmail    string     `field:"client_email" validate:"required,email,max=254"`
	ClientPhone    string     `field:"client_phone" validate:"max=40"`
	ClientWebsite  string     `field:"client_website" validate:"omitempty,url,max=500"`
	ClientLogoURL  string     `field:"client_logo_url" validate:"omitempty,url,max=1000"`
	EmailClient    bool       `field:"email_client"`
	Items          []ItemForm `field:"items" validate:"min=1,dive"`

	IdempotencyKey string `field:"idempotency_key"`
}

// NewForm returns an empty builder with the default id prefix.
func NewForm(idempotencyKey string) Form {
	return Form{QuotationID: DefaultIDPrefix, IdempotencyKey: idempotencyKey}
}

// NewItemForm is the line appended by the add_item action.
func NewItemForm() ItemForm {
	return ItemForm{Quantity: "1", UnitPrice: "0", TaxPercent: "0"}
}

// ParseForm reads builder state from posted values. Item inputs are named
// items.<n>.<field>; gaps in the numbering are closed up in order.
func ParseForm(values url.Values) Form {
	get := func(name string) string { return strings.TrimSpace(values.Get(name)) }
	f := Form{
		QuotationID:    get("quotation_id"),
		Category:       get("category"),
		CompanyName:    get("company_name"),
		CompanyEmail:   get("company_email"),
		CompanyPhone:   get("company_phone"),
		CompanyWebsite: get("company_website"),
		CompanySlogan:  get("company_slogan"),
		CompanyLogoURL: get("company_logo_url"),
		ClientName:     get("client_name"),
		ClientEmail:    get("client_email"),
		ClientPhone:    get("client_phone"),
		ClientWebsite:  get("client_website"),
		ClientLogoURL:  get("client_logo_url"),
		EmailClient:    values.Get("email_client") != "",
		IdempotencyKey: get("idempotency_key"),
	}

	seen := map[int]bool{}
	for key := range values {
		rest, ok := strings.CutPrefix(key, "items.")
		if !ok {
			continue
		}
		idx, _, found := strings.Cut(rest, ".")
		n, err := strconv.Atoi(idx)
		if found && err == nil && n >= 0 {
			seen[n] = true
		}
	}
	indexes := make([]int, 0, len(seen))
	for n := range seen {
		indexes = append(indexes, n)
	}
	sort.Ints(indexes)
	for _, n := range indexes {
		f.Items = append(f.Items, ItemForm{
			Name:       get(ItemFieldName(n, "name")),
			Quantity:   get(ItemFieldName(n, "quantity")),
			UnitPrice:  get(ItemFieldName(n, "unit_price")),
			TaxPercent: get(ItemFieldName(n, "tax_percent")),
			Notes:      get(ItemFieldName(n, "notes")),
		})
	}
	return f
}

// Apply performs a non-submitting builder action and reports whether it was recognised.
// remove_item takes the 0-based line index as remove_item:<n>.
func (f *Form) Apply(action string) bool {
	switch {
	case action == ActionAddItem:
		f.Items = append(f.Items, NewItemForm())
		return true
	case action == ActionRecalculate:
		return true
	case strings.HasPrefix(action, ActionRemoveItem+":"):
		n, err := strconv.Atoi(strings.TrimPrefix(action, ActionRemoveItem+":"))
		if err != nil || n < 0 || n >= len(f.Items) {
			return true
		}
		f.Items = append(f.Items[:n:n], f.Items[n+1:]...)
		return true
	}
	return false
}

// Summary previews the amounts of the current lines.
func (f Form) Summary() Summary {
	return Summarize(f.items())
}

func (f Form) items() []Item {
	items := make([]Item, 0, len(f.Items))
	for _, it := range f.Items {
		items = append(items, Item{
			Name:       it.Name,
			Quantity:   ParseQuantity(it.Quantity),
			UnitPrice:  ParseAmount(it.UnitPrice),
			TaxPercent: ParseAmount(it.TaxPercent),
			Notes:      it.Notes,
		})
	}
	return items
}

// Quotation converts validated form state into the domain snapshot.
func (f Form) Quotation() Quotation {
	return Quotation{
		QuotationID: f.QuotationID,
		Category:    f.Category,
		Company: CompanyProfile{
			Name:    f.CompanyName,
			Email:   f.CompanyEmail,
			Phone:   f.CompanyPhone,
			Website: f.CompanyWebsite,
			Slogan:  f.CompanySlogan,
			LogoURL: f.CompanyLogoURL,
		},
		Client: ClientProfile{
			Name:    f.ClientName,
			Email:   f.ClientEmail,
			Phone:   f.ClientPhone,
			Website: f.ClientWebsite,
			LogoURL: f.ClientLogoURL,
		},
		Items:       f.items(),
		EmailClient: f.EmailClient,
	}
}

// FormFromQuotation is the inverse of Form.Quotation, used by the JSON API.
func FormFromQuotation(q Quotation) Form {
	f := Form{
		QuotationID:    q.QuotationID,
		Category:       q.Category,
		CompanyName:    q.Company.Name,
		CompanyEmail:   q.Company.Email,
		CompanyPhone:   q.Company.Phone,
		CompanyWebsite: q.Company.Website,
		CompanySlogan:  q.Company.Slogan,
		CompanyLogoURL: q.Company.LogoURL,
		ClientName:     q.Client.Name,
		ClientEmail:    q.Client.Email,
		ClientPhone:    q.Client.Phone,
		ClientWebsite:  q.Client.Website,
		ClientLogoURL:  q.Client.LogoURL,
		EmailClient:    q.EmailClient,
	}
	for _, it := range q.Items {
		f.Items = append(f.Items, ItemForm{
			Name:       it.Name,
			Quantity:   strconv.Itoa(it.Quantity),
			UnitPrice:  decimalInput(it.UnitPrice),
			TaxPercent: decimalInput(it.TaxPercent),
			Notes:      it.Notes,
		})
	}
	return f
}

func decimalInput(d decimal.Decimal) string {
	return d.String()
}

// Value returns the raw input of a top-level field by its form name.
func (f Form) Value(name string) string {
	switch name {
	case "quotation_id":
		return f.QuotationID
	case "category":
		return f.Category
	case "company_name":
		return f.CompanyName
	case "company_email":
		return f.CompanyEmail
	case "company_phone":
		return f.CompanyPhone
	case "company_website":
		return f.CompanyWebsite
	case "company_slogan":
		return f.CompanySlogan
	case "company_logo_url":
		return f.CompanyLogoURL
	case "client_name":
		return f.ClientName
	case "client_email":
		return f.ClientEmail
	case "client_phone":
		return f.ClientPhone
	case "client_website":
		return f.ClientWebsite
	case "client_logo_url":
		return f.ClientLogoURL
	case "email_client":
		if f.EmailClient {
			return "on"
		}
	}
	return ""
}

// Value returns the raw input of an item field by its suffix.
func (f ItemForm) Value(name string) string {
	switch name {
	case "name":
		return f.Name
	case "quantity":
		return f.Quantity
	case "unit_price":
		return f.UnitPrice
	case "tax_percent":
		return f.TaxPercent
	case "notes":
		return f.Notes
	}
	return ""
}
