// Package payments talks to the VNPay hosted checkout. Outgoing redirect URLs
// are signed with the merchant hash secret; incoming return callbacks are
// untrusted until their signature checks out.
package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	version        = "2.1.0"
	command        = "pay"
	currency       = "VND"
	dateLayout     = "20060102150405"
	hashParam      = "vnp_SecureHash"
	hashTypeParam  = "vnp_SecureHashType"
	successCode    = "00"
	paymentTimeout = 15 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("payments: invalid signature")
	ErrMalformedReturn  = errors.New("payments: malformed return payload")
)

// vnpayZone is GMT+7, the zone VNPay expects timestamps in.
var vnpayZone = time.FixedZone("ICT", 7*60*60)

type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

type PaymentRequest struct {
	TxnRef   string
	OrderID  int64
	Amount   decimal.Decimal
	ClientIP string
}

type ReturnResult struct {
	TxnRef            string
	Amount            decimal.Decimal
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
}

func (r ReturnResult) Success() bool {
	return r.ResponseCode == successCode && r.TransactionStatus == successCode
}

type VNPay struct {
	cfg Config
	now func() time.Time
}

func NewVNPay(cfg Config) *VNPay {
	return &VNPay{cfg: cfg, now: time.Now}
}

// PaymentURL builds the signed redirect to the hosted checkout page.
func (v *VNPay) PaymentURL(req PaymentRequest) (string, error) {
	if req.TxnRef == "" {
		return "", fmt.Errorf("payments: missing transaction reference")
	}
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("payments: amount must be positive, got %s", req.Amount)
	}

	base, err := url.Parse(v.cfg.PayURL)
	if err != nil {
		return "", fmt.Errorf("payments: bad pay url: %w", err)
	}

	created := v.now().In(vnpayZone)
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", v.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), 10))
	params.Set("vnp_CurrCode", currency)
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", fmt.Sprintf("Payment for order %d", req.OrderID))
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", v.cfg.ReturnURL)
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_CreateDate", created.Format(dateLayout))
	params.Set("vnp_ExpireDate", created.Add(paymentTimeout).Format(dateLayout))

	query := params.Encode()
	base.RawQuery = query + "&" + hashParam + "=" + v.sign(query)
	return base.String(), nil
}

// VerifyReturn checks the signature on a return callback and decodes it.
func (v *VNPay) VerifyReturn(values url.Values) (*ReturnResult, error) {
	got := values.Get(hashParam)
	if got == "" {
		return nil, ErrInvalidSignature
	}

	signed := url.Values{}
	for k, vs := range values {
		if k == hashParam || k == hashTypeParam {
			continue
		}
		signed[k] = vs
	}
	want := v.sign(signed.Encode())
	if !hmac.Equal([]byte(want), []byte(toLowerHex(got))) {
		return nil, ErrInvalidSignature
	}

	minor, err := strconv.ParseInt(values.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: vnp_Amount: %v", ErrMalformedReturn, err)
	}
	ref := values.Get("vnp_TxnRef")
	if ref == "" {
		return nil, fmt.Errorf("%w: missing vnp_TxnRef", ErrMalformedReturn)
	}

	return &ReturnResult{
		TxnRef:            ref,
		Amount:            decimal.New(minor, -2),
		ResponseCode:      values.Get("vnp_ResponseCode"),
		TransactionStatus: values.Get("vnp_TransactionStatus"),
		TransactionNo:     values.Get("vnp_TransactionNo"),
		BankCode:          values.Get("vnp_BankCode"),
	}, nil
}

func (v *VNPay) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(v.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func toLowerHex(s string) string {
	b, err := hex.DecodeString(s)
	if err != nil {
		return s
	}
	return hex.EncodeToString(b)
}
