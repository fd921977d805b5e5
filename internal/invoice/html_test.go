package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/chat-order-service/internal/model"
)

func TestFormatPaise(t *testing.T) {
	cases := []struct {
		paise int64
		want  string
	}{
		{0, "₹0.00"},
		{5, "₹0.05"},
		{45000, "₹450.00"},
		{283250, "₹2832.50"},
		{-100, "-₹1.00"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatPaise(c.paise))
	}
}

func TestRenderHTML(t *testing.T) {
	inv := model.Invoice{
		InvoiceNumber: "INV-1700000000000-7",
		TotalAmount:   283200,
		GSTAmount:     43200,
		Status:        model.InvoiceStatusIssued,
		CreatedAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	order := &model.Order{
		Items: []model.LineItem{{Name: "saree", Quantity: 2, UnitPrice: 120000}},
	}

	html, err := RenderHTML(inv, order)
	require.NoError(t, err)

	doc := string(html)
	assert.Contains(t, doc, "Tax Invoice")
	assert.Contains(t, doc, "INV-1700000000000-7")
	assert.Contains(t, doc, "saree")
	assert.Contains(t, doc, "₹2400.00") // subtotal
	assert.Contains(t, doc, "₹432.00")  // gst
	assert.Contains(t, doc, "₹2832.00") // total
	assert.Contains(t, doc, "01 Mar 2025")
	assert.Contains(t, doc, "31 Mar 2025")
}

func TestRenderHTMLWithoutOrder(t *testing.T) {
	inv := model.Invoice{InvoiceNumber: "INV-1-1", TotalAmount: 118, GSTAmount: 18, Status: "issued"}
	html, err := RenderHTML(inv, nil)
	require.NoError(t, err)
	assert.Contains(t, string(html), "INV-1-1")
	assert.Equal(t, 1, strings.Count(string(html), "<tbody>"))
}
