package gateway

import (
	"context"
	"testing"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensing/internal/payment/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
)

type recordingSnap struct {
	req  *snap.Request
	resp *snap.Response
	err  *midtrans.Error
}

func (r *recordingSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	r.req = req
	return r.resp, r.err
}

func TestCreateCharge(t *testing.T) {
	p := &models.Payment{ID: id.NewPaymentID(), Amount: 350000, Currency: "IDR", Reference: "BRI-7781"}

	t.Run("builds a snap request keyed by payment id", func(t *testing.T) {
		client := &recordingSnap{resp: &snap.Response{Token: "tok-1", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-1"}}
		charge, err := NewMidtransWithClient(client).CreateCharge(context.Background(), p, Customer{FullName: "Siti Rahma Dewi", Email: "siti@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "tok-1", charge.Token)
		assert.Equal(t, p.ID.String(), client.req.TransactionDetails.OrderID)
		assert.Equal(t, int64(350000), client.req.TransactionDetails.GrossAmt)
		assert.Equal(t, "Siti", client.req.CustomerDetail.FName)
		assert.Equal(t, "Rahma Dewi", client.req.CustomerDetail.LName)
	})

	t.Run("gateway errors are unavailable", func(t *testing.T) {
		client := &recordingSnap{err: &midtrans.Error{Message: "access denied", StatusCode: 401}}
		_, err := NewMidtransWithClient(client).CreateCharge(context.Background(), p, Customer{FullName: "Siti"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
