package lib

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignSortsKeysAndUppercases(t *testing.T) {
	c := NewIPayClientFor("m-1", "topsecret", "")

	data := map[string]string{
		"order_id":    "DEP-7",
		"amount":      "20000",
		"merchant_id": "m-1",
	}
	got := c.Sign(data)

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte("amount=20000&merchant_id=m-1&order_id=DEP-7"))
	want := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))

	assert.Equal(t, want, got)
	assert.Equal(t, got, strings.ToUpper(got))
}

func TestVerifySignature(t *testing.T) {
	c := NewIPayClientFor("m-1", "topsecret", "")
	data := map[string]string{"order_id": "DEP-7", "status": "success"}

	assert.True(t, c.VerifySignature(data, c.Sign(data)))
	assert.False(t, c.VerifySignature(data, "DEADBEEF"))

	data["status"] = "failed"
	assert.False(t, c.VerifySignature(data, c.Sign(map[string]string{"order_id": "DEP-7", "status": "success"})))
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewIPayClientFor("", "", "").IsConfigured())
	assert.False(t, NewIPayClientFor("m-1", "", "").IsConfigured())
	assert.True(t, NewIPayClientFor("m-1", "secret", "").IsConfigured())
}

func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/create", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "m-1", r.PostForm.Get("merchant_id"))
		assert.Equal(t, "DEP-7", r.PostForm.Get("order_id"))
		// 200.50 GEL in minor units.
		assert.Equal(t, "20050", r.PostForm.Get("amount"))
		assert.Equal(t, "GEL", r.PostForm.Get("currency"))
		assert.NotEmpty(t, r.PostForm.Get("signature"))
		fmt.Fprint(w, `{"status":"success","transaction_id":"TX-1","payment_url":"https://pay.example/TX-1"}`)
	}))
	defer server.Close()

	c := NewIPayClientFor("m-1", "topsecret", server.URL)
	res, err := c.CreatePayment(context.Background(), PaymentRequest{OrderID: "DEP-7", Amount: 200.50})
	assert.NoError(t, err)
	assert.Equal(t, "TX-1", res.TransactionID)
	assert.Equal(t, "https://pay.example/TX-1", res.PaymentURL)
}

func TestCreatePaymentVendorFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","message":"merchant blocked"}`)
	}))
	defer server.Close()

	c := NewIPayClientFor("m-1", "topsecret", server.URL)
	_, err := c.CreatePayment(context.Background(), PaymentRequest{OrderID: "DEP-8", Amount: 100})
	assert.EqualError(t, err, "merchant blocked")
}

func TestProcessCallback(t *testing.T) {
	c := NewIPayClientFor("m-1", "topsecret", "")

	payload := map[string]string{
		"transaction_id": "TX-9",
		"order_id":       "DEP-9",
		"amount":         "15000",
		"currency":       "GEL",
		"status":         "completed",
	}
	data := map[string]string{}
	for k, v := range payload {
		data[k] = v
	}
	data["signature"] = c.Sign(payload)

	status, err := c.ProcessCallback(data)
	assert.NoError(t, err)
	assert.Equal(t, "TX-9", status.TransactionID)
	assert.Equal(t, "DEP-9", status.OrderID)
	assert.Equal(t, 150.0, status.Amount)
	assert.Equal(t, PAYMENT_SUCCESS, status.Status)

	data["amount"] = "1"
	_, err = c.ProcessCallback(data)
	assert.EqualError(t, err, "invalid callback signature")
}

func TestMapPaymentState(t *testing.T) {
	assert.Equal(t, PAYMENT_SUCCESS, mapPaymentState("Success"))
	assert.Equal(t, PAYMENT_SUCCESS, mapPaymentState("completed"))
	assert.Equal(t, PAYMENT_FAILED, mapPaymentState("declined"))
	assert.Equal(t, PAYMENT_REFUNDED, mapPaymentState("refunded"))
	assert.Equal(t, PAYMENT_PENDING, mapPaymentState("anything-else"))
}
