package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Session adalah hasil create transaction di Snap: token + redirect URL
// yang dikirim balik ke frontend.
type Session struct {
	Token       string
	RedirectURL string
	ExpiresAt   time.Time
}

type ItemDetail struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

type ChargeRequest struct {
	OrderNumber   string // jadi order_id di sisi Midtrans
	GrossAmount   int64  // rupiah utuh
	CustomerName  string
	CustomerEmail string
	Items         []ItemDetail
	ExpiryMinutes int64
}

// TransactionStatus adalah potret status transaksi dari Midtrans
// (hasil pull CheckTransaction maupun field notifikasi webhook).
type TransactionStatus struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	PaymentType       string
	StatusCode        string
	GrossAmount       string
	SettlementTime    string
}

// Client membungkus snap (create transaction) + coreapi (cek status).
type Client struct {
	snap snap.Client
	core coreapi.Client
}

func New(serverKey, env string) *Client {
	e := midtrans.Sandbox
	if env == "production" {
		e = midtrans.Production
	}

	c := &Client{}
	c.snap.New(serverKey, e)
	c.core.New(serverKey, e)

	// batasi semua call gateway; jangan gantung worker nungguin Midtrans
	hc := &midtrans.HttpClientImplementation{HttpClient: &http.Client{Timeout: 10 * time.Second}}
	c.snap.HttpClient = hc
	c.core.HttpClient = hc
	return c
}

// CreateTransaction minta sesi pembayaran Snap untuk satu order.
// Timeout dibatasi HTTP client; ctx dicek dulu supaya caller yang sudah
// batal tidak tetap bikin transaksi.
func (c *Client) CreateTransaction(ctx context.Context, req ChargeRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID: it.ID, Name: it.Name, Price: it.Price, Qty: it.Qty,
		})
	}

	expiry := req.ExpiryMinutes
	if expiry <= 0 {
		expiry = 24 * 60
	}

	resp, mErr := c.snap.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderNumber,
			GrossAmt: req.GrossAmount,
		},
		Items: &items,
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
		Expiry: &snap.ExpiryDetails{Unit: "minute", Duration: expiry},
	})
	if mErr != nil {
		return Session{}, fmt.Errorf("snap create transaction: %w", mErr)
	}
	return Session{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		ExpiresAt:   time.Now().UTC().Add(time.Duration(expiry) * time.Minute),
	}, nil
}

// CheckTransaction adalah jalur pull: tanya langsung ke Midtrans status
// transaksi terkini. Ini sumber kebenaran; notifikasi push cuma fast-path.
func (c *Client) CheckTransaction(ctx context.Context, orderNumber string) (TransactionStatus, error) {
	if err := ctx.Err(); err != nil {
		return TransactionStatus{}, err
	}

	resp, mErr := c.core.CheckTransaction(orderNumber)
	if mErr != nil {
		return TransactionStatus{}, fmt.Errorf("check transaction %s: %w", orderNumber, mErr)
	}
	return TransactionStatus{
		OrderID:           resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
		PaymentType:       resp.PaymentType,
		StatusCode:        resp.StatusCode,
		GrossAmount:       resp.GrossAmount,
		SettlementTime:    resp.SettlementTime,
	}, nil
}
