// Package invoice renders printable HTML invoices. The browser's print
// dialog turns the document into a PDF; no PDF engine is involved.
package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/fairyhunter13/chat-order-service/internal/model"
)

const dueAfter = 30 * 24 * time.Hour

var tmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Number}}</title>
<style>
body { font-family: 'Segoe UI', Tahoma, sans-serif; color: #333; background: #f5f5f5; }
.container { max-width: 900px; margin: 20px auto; background: #fff; padding: 40px; border-radius: 8px; }
.header { display: flex; justify-content: space-between; border-bottom: 2px solid #2563eb; padding-bottom: 20px; margin-bottom: 40px; }
.header h1 { color: #2563eb; font-size: 28px; }
.meta { text-align: right; font-size: 13px; color: #666; }
table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
th { background: #2563eb; color: #fff; text-align: left; padding: 10px; font-size: 13px; }
td { padding: 10px; border-bottom: 1px solid #eee; font-size: 13px; }
.totals { margin-left: auto; width: 280px; font-size: 14px; }
.totals div { display: flex; justify-content: space-between; padding: 6px 0; }
.totals .grand { border-top: 2px solid #2563eb; font-weight: 700; }
.status { display: inline-block; padding: 4px 10px; border-radius: 4px; background: #dbeafe; color: #1d4ed8; font-size: 12px; }
@media print { body { background: #fff; } .container { box-shadow: none; margin: 0; } }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <div><h1>Tax Invoice</h1><span class="status">{{.Status}}</span></div>
    <div class="meta">
      <div>Invoice No: <strong>{{.Number}}</strong></div>
      <div>Issued: {{.Issued}}</div>
      <div>Due: {{.Due}}</div>
    </div>
  </div>
  <table>
    <thead><tr><th>Item</th><th>Qty</th><th>Unit Price</th><th>Amount</th></tr></thead>
    <tbody>
    {{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.Amount}}</td></tr>
    {{end}}</tbody>
  </table>
  <div class="totals">
    <div><span>Subtotal</span><span>{{.Subtotal}}</span></div>
    <div><span>GST (18%)</span><span>{{.GST}}</span></div>
    <div class="grand"><span>Total</span><span>{{.Total}}</span></div>
  </div>
</div>
</body>
</html>
`))

type lineView struct {
	Name      string
	Quantity  int64
	UnitPrice string
	Amount    string
}

type invoiceView struct {
	Number   string
	Status   string
	Issued   string
	Due      string
	Items    []lineView
	Subtotal string
	GST      string
	Total    string
}

// RenderHTML produces the printable document for an invoice and its
// order. The order may be nil when it was deleted after issuing; the
// totals still render from the invoice amounts.
func RenderHTML(inv model.Invoice, order *model.Order) ([]byte, error) {
	issued := inv.CreatedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}

	view := invoiceView{
		Number:   inv.InvoiceNumber,
		Status:   inv.Status,
		Issued:   issued.Format("02 Jan 2006"),
		Due:      issued.Add(dueAfter).Format("02 Jan 2006"),
		Subtotal: FormatPaise(inv.TotalAmount - inv.GSTAmount),
		GST:      FormatPaise(inv.GSTAmount),
		Total:    FormatPaise(inv.TotalAmount),
	}
	if order != nil {
		for _, it := range order.Items {
			view.Items = append(view.Items, lineView{
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: FormatPaise(it.UnitPrice),
				Amount:    FormatPaise(it.Quantity * it.UnitPrice),
			})
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatPaise converts minor units to a rupee string for display. This
// is the only place amounts leave integer arithmetic, and only as text.
func FormatPaise(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}
