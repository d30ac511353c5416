package shop

import (
	"fmt"
	"html/template"
	"strings"
)

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.WorkOrderID}}</title></head>
<body>
<h1>Invoice</h1>
<p>Work order: {{.WorkOrderID}}</p>
<p>Customer: {{.CustomerName}}</p>
<table>
<tr><th>Description</th><th>Amount</th></tr>
{{range .Lines}}<tr><td>{{.Description}}</td><td>{{.Amount}}</td></tr>
{{end}}</table>
<p>Total: {{.Total}}</p>
</body>
</html>
`))

type invoiceLine struct {
	Description string
	Amount      string
}

type invoiceData struct {
	WorkOrderID  string
	CustomerName string
	Lines        []invoiceLine
	Total        string
}

// RenderInvoiceHTML renders the invoice document for one work order.
func RenderInvoiceHTML(wo *WorkOrder, customer *Customer, lines []WorkOrderLine) (string, error) {
	if wo == nil {
		return "", fmt.Errorf("work order is required")
	}

	data := invoiceData{
		WorkOrderID: wo.ID,
	}
	if customer != nil {
		data.CustomerName = customer.Name
	}

	var totalCents int64
	for _, line := range lines {
		totalCents += line.AmountCents
		data.Lines = append(data.Lines, invoiceLine{
			Description: line.Description,
			Amount:      formatCents(line.AmountCents),
		})
	}
	data.Total = formatCents(totalCents)

	var sb strings.Builder
	if err := invoiceTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render invoice: %w", err)
	}
	return sb.String(), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
