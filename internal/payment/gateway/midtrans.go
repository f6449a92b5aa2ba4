// Package gateway creates hosted checkout sessions for submitted payments.
package gateway

import (
	"context"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"licensing/internal/payment/models"
	dErrors "licensing/pkg/domain-errors"
)

// Customer is the payer shown on the checkout page.
type Customer struct {
	FullName string
	Email    string
}

// Charge is a checkout session returned by the gateway.
type Charge struct {
	Token       string
	RedirectURL string
}

// SnapClient is the subset of snap.Client used here.
type SnapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// Midtrans requests Snap tokens for license fee payments.
type Midtrans struct {
	client SnapClient
}

// NewMidtrans builds a Snap client against the sandbox unless production is set.
func NewMidtrans(serverKey string, production bool) *Midtrans {
	var client snap.Client
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	client.New(serverKey, env)
	return &Midtrans{client: &client}
}

// NewMidtransWithClient wraps an existing Snap client.
func NewMidtransWithClient(client SnapClient) *Midtrans {
	return &Midtrans{client: client}
}

// CreateCharge opens a Snap transaction keyed by the payment id.
func (m *Midtrans) CreateCharge(ctx context.Context, p *models.Payment, customer Customer) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "payment gateway call cancelled")
	}
	first, last := splitName(customer.FullName)
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  p.ID.String(),
			GrossAmt: p.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: first,
			LName: last,
			Email: customer.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       "driving-license-fee",
				Price:    p.Amount,
				Qty:      1,
				Name:     "Driving license fee",
				Category: "license",
			},
		},
		CustomField1: truncate(p.Reference, 40),
	}

	resp, merr := m.client.CreateTransaction(req)
	if merr != nil {
		return nil, dErrors.Wrap(merr, dErrors.CodeUnavailable, "payment gateway rejected the charge")
	}
	return &Charge{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
