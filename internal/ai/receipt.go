package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ReceiptLine is one purchase parsed from OCR'd receipt text.
type ReceiptLine struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// ParsedReceipt is the structured result of receipt processing.
type ParsedReceipt struct {
	StoreName string        `json:"store_name"`
	Date      string        `json:"date,omitempty"` // YYYY-MM-DD when the model finds one
	Lines     []ReceiptLine `json:"lines"`
	Total     float64       `json:"total"`
}

const receiptSystemPrompt = `Você extrai compras de texto OCR de cupom fiscal. ` +
	`O texto pode ter erros de OCR; corrija nomes óbvios. Responda com JSON ` +
	`{"store_name": string, "date": "YYYY-MM-DD" ou "", ` +
	`"lines": [{"name": string, "quantity": number, "unit_price": number, "total": number}], ` +
	`"total": number}. Ignore linhas de imposto, troco e pagamento.`

// ParseReceipt turns OCR'd receipt text into structured purchase lines.
func (c *Client) ParseReceipt(ctx context.Context, ocrText string) (*ParsedReceipt, error) {
	content, err := c.complete(ctx, receiptSystemPrompt, ocrText)
	if err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}

	var receipt ParsedReceipt
	if err := json.Unmarshal([]byte(content), &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	lines := receipt.Lines[:0]
	for _, line := range receipt.Lines {
		line.Name = strings.TrimSpace(line.Name)
		if line.Name == "" || line.Total < 0 {
			continue
		}
		if line.Quantity <= 0 {
			line.Quantity = 1
		}
		if line.UnitPrice == 0 && line.Quantity > 0 {
			line.UnitPrice = line.Total / line.Quantity
		}
		lines = append(lines, line)
	}
	receipt.Lines = lines
	return &receipt, nil
}
