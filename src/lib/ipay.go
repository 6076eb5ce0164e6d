package lib

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const ipayDefaultAPIURL = "https://ipay.ge/opay/api"

// IPayClient implements the deposit-payment vendor's signed form-POST API.
// Every request carries an HMAC-SHA256 signature over the fields sorted
// lexicographically by key.
type IPayClient struct {
	MerchantID  string
	SecretKey   string
	APIURL      string
	CallbackURL string

	http *http.Client
}

var ipayClient *IPayClient

func GetIPayClient() *IPayClient {
	if ipayClient != nil {
		return ipayClient
	}
	apiURL := os.Getenv("IPAY_API_URL")
	if apiURL == "" {
		apiURL = ipayDefaultAPIURL
	}
	c := &IPayClient{
		MerchantID:  os.Getenv("IPAY_MERCHANT_ID"),
		SecretKey:   os.Getenv("IPAY_SECRET_KEY"),
		APIURL:      apiURL,
		CallbackURL: os.Getenv("IPAY_CALLBACK_URL"),
		http:        &http.Client{Timeout: 30 * time.Second},
	}
	ipayClient = c
	return c
}

// NewIPayClient replaces the shared client, used by tests.
func NewIPayClient(c *IPayClient) *IPayClient {
	ipayClient = c
	return c
}

func NewIPayClientFor(merchantID, secretKey, apiURL string) *IPayClient {
	return &IPayClient{
		MerchantID: merchantID,
		SecretKey:  secretKey,
		APIURL:     apiURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// IsConfigured reports whether real merchant credentials are present. The
// mock payment fallback in the check-in flow is gated on this being false.
func (c *IPayClient) IsConfigured() bool {
	return c != nil && c.MerchantID != "" && c.SecretKey != ""
}

// Sign produces the uppercase hex HMAC-SHA256 of "k=v&k=v..." with keys in
// lexicographic order.
func (c *IPayClient) Sign(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, data[k]))
	}
	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks a callback signature in constant time.
func (c *IPayClient) VerifySignature(data map[string]string, signature string) bool {
	expected := c.Sign(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

type PaymentRequest struct {
	OrderID     string
	Amount      float64
	Currency    string
	Description string
	Language    string
	PreAuth     bool
}

type PaymentResponse struct {
	TransactionID string
	PaymentURL    string
}

type PaymentState string

const (
	PAYMENT_PENDING  PaymentState = "pending"
	PAYMENT_SUCCESS  PaymentState = "success"
	PAYMENT_FAILED   PaymentState = "failed"
	PAYMENT_REFUNDED PaymentState = "refunded"
)

type PaymentStatus struct {
	TransactionID string
	OrderID       string
	Amount        float64
	Currency      string
	Status        PaymentState
	ResultCode    string
	ResultMessage string
}

type ipayResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	ResultCode    string `json:"result_code"`
	ResultMessage string `json:"result_message"`
}

func (c *IPayClient) post(ctx context.Context, path string, data map[string]string) (*ipayResponse, error) {
	data["signature"] = c.Sign(data)
	form := url.Values{}
	for k, v := range data {
		form.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var body ipayResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

// CreatePayment initiates a payment and returns the redirect target the
// guest must be sent to. Amounts are submitted in minor units.
func (c *IPayClient) CreatePayment(ctx context.Context, r PaymentRequest) (*PaymentResponse, error) {
	currency := r.Currency
	if currency == "" {
		currency = "GEL"
	}
	description := r.Description
	if description == "" {
		description = "Deposit payment"
	}
	language := r.Language
	if language == "" {
		language = "ka"
	}
	preauth := "0"
	if r.PreAuth {
		preauth = "1"
	}
	data := map[string]string{
		"merchant_id":  c.MerchantID,
		"order_id":     r.OrderID,
		"amount":       strconv.FormatInt(int64(math.Round(r.Amount*100)), 10),
		"currency":     currency,
		"description":  description,
		"language":     language,
		"callback_url": c.CallbackURL,
		"preauth":      preauth,
	}
	body, err := c.post(ctx, "/order/create", data)
	if err != nil {
		return nil, err
	}
	if body.Status != "success" {
		msg := body.Message
		if msg == "" {
			msg = "payment creation failed"
		}
		return nil, errors.New(msg)
	}
	return &PaymentResponse{TransactionID: body.TransactionID, PaymentURL: body.PaymentURL}, nil
}

// GetStatus queries the vendor for a transaction's current state.
func (c *IPayClient) GetStatus(ctx context.Context, transactionID string) (*PaymentStatus, error) {
	data := map[string]string{
		"merchant_id":    c.MerchantID,
		"transaction_id": transactionID,
	}
	body, err := c.post(ctx, "/order/status", data)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{
		TransactionID: body.TransactionID,
		OrderID:       body.OrderID,
		Amount:        float64(body.Amount) / 100,
		Currency:      body.Currency,
		Status:        mapPaymentState(body.Status),
		ResultCode:    body.ResultCode,
		ResultMessage: body.ResultMessage,
	}, nil
}

// Refund reverses a transaction, fully or (when amount is set) partially.
func (c *IPayClient) Refund(ctx context.Context, transactionID string, amount *float64) (bool, error) {
	data := map[string]string{
		"merchant_id":    c.MerchantID,
		"transaction_id": transactionID,
	}
	if amount != nil {
		data["amount"] = strconv.FormatInt(int64(math.Round(*amount*100)), 10)
	}
	body, err := c.post(ctx, "/order/refund", data)
	if err != nil {
		return false, err
	}
	return body.Status == "success", nil
}

// ProcessCallback verifies a signed vendor callback and returns its payment
// status. The signature field itself is excluded from signing.
func (c *IPayClient) ProcessCallback(data map[string]string) (*PaymentStatus, error) {
	signature := data["signature"]
	payload := make(map[string]string, len(data))
	for k, v := range data {
		if k == "signature" {
			continue
		}
		payload[k] = v
	}
	if !c.VerifySignature(payload, signature) {
		return nil, errors.New("invalid callback signature")
	}
	amount, _ := strconv.ParseInt(payload["amount"], 10, 64)
	return &PaymentStatus{
		TransactionID: payload["transaction_id"],
		OrderID:       payload["order_id"],
		Amount:        float64(amount) / 100,
		Currency:      payload["currency"],
		Status:        mapPaymentState(payload["status"]),
		ResultCode:    payload["result_code"],
		ResultMessage: payload["result_message"],
	}, nil
}

func mapPaymentState(vendorStatus string) PaymentState {
	switch strings.ToLower(vendorStatus) {
	case "success", "completed":
		return PAYMENT_SUCCESS
	case "failed", "declined", "error":
		return PAYMENT_FAILED
	case "refunded":
		return PAYMENT_REFUNDED
	default:
		return PAYMENT_PENDING
	}
}
