package quotation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForm() Form {
	return Form{
		QuotationID:    "QT-001",
		Category:       "Web",
		CompanyName:    "Mbivu Tech",
		CompanyEmail:   "info@mbivutech.co.ke",
		CompanyWebsite: "https://mbivutech.co.ke",
		CompanySlogan:  "Innovate. Build. Deliver.",
		ClientName:     "John Doe",
		ClientEmail:    "john@clientmail.com",
		Items: []ItemForm{
			{Name: "Website Design", Quantity: "1", UnitPrice: "500", TaxPercent: "10"},
			{Name: "Hosting", Quantity: "1", UnitPrice: "100", TaxPercent: "5"},
		},
	}
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	v := NewValidator(NewDomainPolicy(false))
	assert.Nil(t, v.Validate(sampleForm()))
}

func TestValidateReportsFieldsByInputName(t *testing.T) {
	v := NewValidator(NewDomainPolicy(false))
	f := sampleForm()
	f.CompanyName = ""
	f.CompanyEmail = "not-an-email"
	f.ClientWebsite = "nope"
	f.Items[1].Quantity = "0"
	f.Items[1].UnitPrice = "-1"
	f.Items[0].TaxPercent = "ten"

	errs := v.Validate(f)
	require.NotNil(t, errs)
	assert.Equal(t, "Company Name is required", errs["company_name"])
	assert.Equal(t, "Company Email must be a valid email address", errs["company_email"])
	assert.Equal(t, "Client Website must be a valid URL", errs["client_website"])
	assert.Equal(t, "Item 2 Quantity must be a whole number of at least 1", errs["items.1.quantity"])
	assert.Equal(t, "Item 2 Price must be a number of zero or more", errs["items.1.unit_price"])
	assert.Equal(t, "Item 1 Tax % must be a number of zero or more", errs["items.0.tax_percent"])
}

func TestValidateRejectsInputTheColumnsCannotHold(t *testing.T) {
	v := NewValidator(NewDomainPolicy(false))

	f := sampleForm()
	f.Items[0].UnitPrice = "19.999"
	f.Items[0].TaxPercent = "7.12345"
	errs := v.Validate(f)
	require.NotNil(t, errs)
	assert.Equal(t, "Item 1 Price must be below 1000000000000 with at most 2 decimals", errs["items.0.unit_price"])
	assert.Equal(t, "Item 1 Tax % must be below 10000 with at most 3 decimals", errs["items.0.tax_percent"])

	f = sampleForm()
	f.Items[1].UnitPrice = "1e13"
	f.Items[1].Quantity = "3000000000"
	f.Items[1].TaxPercent = "12345"
	errs = v.Validate(f)
	require.NotNil(t, errs)
	assert.Contains(t, errs["items.1.unit_price"], "must be below")
	assert.Equal(t, "Item 2 Quantity must be at most 2147483647", errs["items.1.quantity"])
	assert.Contains(t, errs["items.1.tax_percent"], "must be below")
}

func TestValidateAcceptsColumnBoundaries(t *testing.T) {
	v := NewValidator(NewDomainPolicy(false))
	f := sampleForm()
	f.Items[0].UnitPrice = "999999999999.99"
	f.Items[0].TaxPercent = "9999.999"
	f.Items[0].Quantity = "2147483647"
	f.Items[1].UnitPrice = "19.990"
	assert.Nil(t, v.Validate(f))
}

func TestValidateRequiresItems(t *testing.T) {
	v := NewValidator(NewDomainPolicy(false))
	f := sampleForm()
	f.Items = nil
	errs := v.Validate(f)
	assert.Equal(t, "Add at least one item", errs["items"])
}

func TestDomainPolicy(t *testing.T) {
	off := NewDomainPolicy(false)
	assert.False(t, off.BlocksEmail("me@gmail.com"))

	on := NewDomainPolicy(true)
	assert.True(t, on.BlocksEmail("me@Gmail.com"))
	assert.False(t, on.BlocksEmail("me@notgmail.com"))
	assert.False(t, on.BlocksEmail("me@gmail.com.example.org"))

	assert.True(t, on.BlocksWebsite("https://acme.vercel.app"))
	assert.True(t, on.BlocksWebsite("https://render.com/acme"))
	assert.False(t, on.BlocksWebsite("https://myrender.com"))
	assert.False(t, on.BlocksWebsite("https://acme.com/?ref=vercel.app"))
}

func TestValidateAppliesEnabledPolicy(t *testing.T) {
	v := NewValidator(NewDomainPolicy(true))
	f := sampleForm()
	f.CompanyEmail = "owner@yahoo.com"
	f.CompanyWebsite = "https://demo.netlify.app"
	errs := v.Validate(f)
	assert.Contains(t, errs["company_email"], "company email")
	assert.Contains(t, errs["company_website"], "actual company domain")
}

func TestParseFormAndActions(t *testing.T) {
	values := url.Values{
		"quotation_id":        {"QT-9"},
		"company_name":        {" Acme "},
		"email_client":        {"on"},
		"items.3.name":        {"Hosting"},
		"items.3.quantity":    {"2"},
		"items.0.name":        {"Design"},
		"items.0.unit_price":  {"abc"},
		"items.0.tax_percent": {"5"},
	}
	f := ParseForm(values)
	assert.Equal(t, "QT-9", f.QuotationID)
	assert.Equal(t, "Acme", f.CompanyName)
	assert.True(t, f.EmailClient)
	require.Len(t, f.Items, 2)
	assert.Equal(t, "Design", f.Items[0].Name)
	assert.Equal(t, "Hosting", f.Items[1].Name)
	assert.True(t, f.Items[0].Amounts().LineTotal.IsZero())

	assert.True(t, f.Apply(ActionAddItem))
	require.Len(t, f.Items, 3)
	assert.Equal(t, "1", f.Items[2].Quantity)

	assert.True(t, f.Apply("remove_item:0"))
	require.Len(t, f.Items, 2)
	assert.Equal(t, "Hosting", f.Items[0].Name)

	assert.True(t, f.Apply("remove_item:9"))
	assert.Len(t, f.Items, 2)
	assert.True(t, f.Apply(ActionRecalculate))
	assert.False(t, f.Apply(ActionSubmit))
}

func TestFormQuotationRoundTrip(t *testing.T) {
	q := sampleForm().Quotation()
	assert.Equal(t, "655.00", q.GrandTotal().StringFixed(2))
	assert.Equal(t, "Innovate. Build. Deliver.", q.Company.Slogan)

	back := FormFromQuotation(q)
	assert.Equal(t, "500", back.Items[0].UnitPrice)
	assert.Equal(t, "1", back.Items[0].Quantity)
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Company Email", LabelFor("company_email"))
	assert.Equal(t, "Item 3 Notes", LabelFor("items.2.notes"))
	assert.Equal(t, "mystery", LabelFor("mystery"))
}
