package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"ms-marketplace/internal/models"
)

const siteURL = "https://neighborly.ng"

var (
	orderReceivedTmpl = template.Must(template.New("order").Parse(`
<p>Hello {{.VendorName}},</p>
<p><strong>{{.BuyerName}}</strong> just paid <strong>{{printf "%.2f" .Amount}}</strong> for <strong>{{.Product.Name}}</strong>.</p>
<p>Payment reference: {{.Reference}}</p>
<p>Log in to your Neighborly account to arrange pickup or delivery.</p>
<p>- Neighborly</p>`))

	adApprovedTmpl = template.Must(template.New("ad").Parse(`
<p>Hello {{.VendorName}},</p>
<p>Your ad <strong>{{.Name}}</strong> in {{.Location}} has been approved and is now live for {{.Duration}}.</p>
<p>- Neighborly</p>`))

	newProductTmpl = template.Must(template.New("product").Parse(`
<p><strong>{{.VendorName}}</strong> listed a new product: <strong>{{.Product.Name}}</strong> in <strong>{{.Product.Location}}</strong>.</p>
<p>Login to your neighborly account to view product</p><br/>
<p><a href="{{.URL}}">View Product</a></p>
<p>- Neighborly</p>`))
)

func render(t *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

// OrderReceived is sent to the vendor of a newly settled order.
func OrderReceived(order models.Order) (subject, html string) {
	subject = fmt.Sprintf("New order: %s", order.Product.Name)
	return subject, render(orderReceivedTmpl, order)
}

// AdApproved is sent to the vendor when an admin activates their ad.
func AdApproved(ad models.Ad) (subject, html string) {
	subject = fmt.Sprintf("Your ad %q is now live", ad.Name)
	return subject, render(adApprovedTmpl, ad)
}

// NewProduct is fanned out to every user when a vendor lists a product.
func NewProduct(vendorName string, product models.Product) (subject, html string) {
	if vendorName == "" {
		vendorName = "A seller"
	}
	subject = fmt.Sprintf("%s just posted %q in %s", vendorName, product.Name, product.Location)
	return subject, render(newProductTmpl, struct {
		VendorName string
		Product    models.Product
		URL        string
	}{vendorName, product, fmt.Sprintf("%s/products/%s", siteURL, product.ID)})
}
