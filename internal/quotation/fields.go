package quotation

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind selects the input widget used for a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindURL      FieldKind = "url"
	KindTel      FieldKind = "tel"
	KindNumber   FieldKind = "number"
	KindTextarea FieldKind = "textarea"
	KindCheckbox FieldKind = "checkbox"
)

// Field groups on the builder page.
const (
	GroupCompany   = "Company Info"
	GroupClient    = "Client Info"
	GroupQuotation = "Quotation"
	GroupItem      = "Item"
)

// Field describes one input of the builder form.
type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Group       string
	Required    bool
	Placeholder string
}

// Fields lists the top-level builder inputs in display order.
var Fields = []Field{
	{Name: "company_name", Label: "Company Name", Kind: KindText, Group: GroupCompany, Required: true},
	{Name: "company_email", Label: "Company Email", Kind: KindEmail, Group: GroupCompany, Required: true},
	{Name: "company_phone", Label: "Company Phone", Kind: KindTel, Group: GroupCompany},
	{Name: "company_website", Label: "Company Website", Kind: KindURL, Group: GroupCompany, Required: true, Placeholder: "https://"},
	{Name: "company_slogan", Label: "Company Slogan", Kind: KindText, Group: GroupCompany},
	{Name: "company_logo_url", Label: "Company Logo URL", Kind: KindURL, Group: GroupCompany, Placeholder: "https://"},
	{Name: "client_name", Label: "Client Name", Kind: KindText, Group: GroupClient},
	{Name: "client_email", Label: "Client Email", Kind: KindEmail, Group: GroupClient, Required: true},
	{Name: "client_phone", Label: "Client Phone", Kind: KindTel, Group: GroupClient},
	{Name: "client_website", Label: "Client Website", Kind: KindURL, Group: GroupClient, Placeholder: "https://"},
	{Name: "client_logo_url", Label: "Client Logo URL", Kind: KindURL, Group: GroupClient, Placeholder: "https://"},
	{Name: "quotation_id", Label: "Quotation ID", Kind: KindText, Group: GroupQuotation, Required: true},
	{Name: "category", Label: "Category", Kind: KindText, Group: GroupQuotation},
	{Name: "email_client", Label: "Email Client", Kind: KindCheckbox, Group: GroupQuotation},
}

// ItemFields lists the per-line inputs; names are suffixes of items.<n>.
var ItemFields = []Field{
	{Name: "name", Label: "Name", Kind: KindText, Group: GroupItem, Required: true},
	{Name: "quantity", Label: "Quantity", Kind: KindNumber, Group: GroupItem, Required: true},
	{Name: "unit_price", Label: "Price", Kind: KindNumber, Group: GroupItem},
	{Name: "tax_percent", Label: "Tax %", Kind: KindNumber, Group: GroupItem},
	{Name: "notes", Label: "Notes", Kind: KindTextarea, Group: GroupItem, Placeholder: "Item notes..."},
}

var labels = func() map[string]string {
	m := make(map[string]string, len(Fields)+len(ItemFields))
	for _, f := range Fields {
		m[f.Name] = f.Label
	}
	for _, f := range ItemFields {
		m["item."+f.Name] = f.Label
	}
	m["items"] = "Items"
	return m
}()

// FieldsInGroup returns the top-level fields belonging to group.
func FieldsInGroup(group string) []Field {
	var out []Field
	for _, f := range Fields {
		if f.Group == group {
			out = append(out, f)
		}
	}
	return out
}

// ItemFieldName builds the input name of an item field, e.g. items.2.quantity.
func ItemFieldName(index int, name string) string {
	return "items." + strconv.Itoa(index) + "." + name
}

// LabelFor returns the display label of a field name, including item fields.
func LabelFor(name string) string {
	if label, ok := labels[name]; ok {
		return label
	}
	if rest, ok := strings.CutPrefix(name, "items."); ok {
		idx, field, found := strings.Cut(rest, ".")
		n, err := strconv.Atoi(idx)
		if found && err == nil {
			if label, ok := labels["item."+field]; ok {
				return fmt.Sprintf("Item %d %s", n+1, label)
			}
		}
	}
	return name
}
