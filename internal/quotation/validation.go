package quotation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

// FreeEmailDomains are consumer mail providers rejected for company email
// when the domain policy is enabled.
var FreeEmailDomains = []string{
	"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "aol.com",
	"icloud.com", "protonmail.com", "gmx.com", "yandex.com", "mail.com",
}

// PlaceholderHosts are hosting platforms rejected as a company website.
var PlaceholderHosts = []string{
	"vercel.app", "netlify.app", "render.com", "glitch.me", "repl.co",
}

// DomainPolicy optionally restricts the company email domain and website host.
// Matching is exact on the email domain and exact-or-subdomain on the host.
type DomainPolicy struct {
	Enabled      bool
	EmailDomains []string
	Hosts        []string
}

// NewDomainPolicy returns the stock blocklists, switched on or off.
func NewDomainPolicy(enabled bool) DomainPolicy {
	return DomainPolicy{Enabled: enabled, EmailDomains: FreeEmailDomains, Hosts: PlaceholderHosts}
}

// BlocksEmail reports whether the address's domain is on the list.
func (p DomainPolicy) BlocksEmail(email string) bool {
	if !p.Enabled {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range p.EmailDomains {
		if domain == d {
			return true
		}
	}
	return false
}

// BlocksWebsite reports whether the URL's host is, or is under, a listed host.
func (p DomainPolicy) BlocksWebsite(raw string) bool {
	if !p.Enabled {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range p.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Validator checks builder forms.
type Validator struct {
	validate *validator.Validate
	policy   DomainPolicy
}

// NewValidator registers the amount and quantity rules.
func NewValidator(policy DomainPolicy) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("field"); name != "" {
			return name
		}
		return fld.Name
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if raw == "" {
			return true
		}
		d, err := decimal.NewFromString(raw)
		return err == nil && !d.IsNegative()
	})
	_ = v.RegisterValidation("price", boundedDecimal(PriceScale, MaxPrice))
	_ = v.RegisterValidation("percent", boundedDecimal(PercentScale, MaxTaxPercent))
	_ = v.RegisterValidation("quantity", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && n >= 1
	})
	_ = v.RegisterValidation("quantity_max", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && n <= MaxQuantity
	})
	return &Validator{validate: v, policy: policy}
}

// Validate returns per-field messages keyed by input name, or nil.
func (v *Validator) Validate(f Form) httpx.FieldErrors {
	errs := httpx.FieldErrors{}
	if err := v.validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["form"] = "Form could not be validated"
			return errs
		}
		for _, fe := range verrs {
			name := fieldKey(fe.Namespace())
			if _, dup := errs[name]; !dup {
				errs[name] = fieldMessage(name, fe)
			}
		}
	}
	if _, bad := errs["company_email"]; !bad && v.policy.BlocksEmail(f.CompanyEmail) {
		errs["company_email"] = "Use a valid company email (not Gmail, Yahoo, etc.)"
	}
	if _, bad := errs["company_website"]; !bad && v.policy.BlocksWebsite(f.CompanyWebsite) {
		errs["company_website"] = "Enter your actual company domain (not test domains like vercel.app)"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// boundedDecimal accepts empty input or a decimal below limit with at most
// scale fractional digits. Sign is checked by the amount rule.
func boundedDecimal(scale int32, limit decimal.Decimal) validator.Func {
	return func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if raw == "" {
			return true
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return false
		}
		return d.LessThan(limit) && d.Equal(d.Truncate(scale))
	}
}

// fieldKey turns Form.items[1].quantity into items.1.quantity.
func fieldKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func fieldMessage(name string, fe validator.FieldError) string {
	label := LabelFor(name)
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "url":
		return label + " must be a valid URL"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "min":
		if name == "items" {
			return "Add at least one item"
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "amount":
		return label + " must be a number of zero or more"
	case "quantity":
		return label + " must be a whole number of at least 1"
	case "quantity_max":
		return fmt.Sprintf("%s must be at most %d", label, MaxQuantity)
	case "price":
		return fmt.Sprintf("%s must be below %s with at most %d decimals", label, MaxPrice.String(), PriceScale)
	case "percent":
		return fmt.Sprintf("%s must be below %s with at most %d decimals", label, MaxTaxPercent.String(), PercentScale)
	}
	return label + " is invalid"
}
