package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/textcraft/creditgate/internal/config"
	"github.com/textcraft/creditgate/internal/gateway/domain"
	"go.uber.org/zap"
)

const receiptItemDescriptionLimit = 128

// Client talks to the YooKassa payments REST API. Every create call carries
// a fresh Idempotence-Key so transport-level retries cannot create duplicate
// payments.
type Client struct {
	baseURL      string
	shopID       string
	secretKey    string
	receiptEmail string
	http         *http.Client
	log          *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		shopID:       cfg.Gateway.ShopID,
		secretKey:    cfg.Gateway.SecretKey,
		receiptEmail: cfg.Gateway.ReceiptEmail,
		http:         &http.Client{Timeout: cfg.Gateway.Timeout},
		log:          log.Named("gateway.yookassa"),
	}
}

func (c *Client) configured() bool {
	return c.shopID != "" && c.secretKey != ""
}

type amountPayload struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationPayload struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type receiptItemPayload struct {
	Description    string        `json:"description"`
	Quantity       string        `json:"quantity"`
	Amount         amountPayload `json:"amount"`
	VATCode        string        `json:"vat_code"`
	PaymentMode    string        `json:"payment_mode"`
	PaymentSubject string        `json:"payment_subject"`
}

type receiptPayload struct {
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
	Items []receiptItemPayload `json:"items"`
}

type createPaymentPayload struct {
	Amount       amountPayload       `json:"amount"`
	Capture      bool                `json:"capture"`
	Confirmation confirmationPayload `json:"confirmation"`
	Description  string              `json:"description"`
	Receipt      receiptPayload      `json:"receipt"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	Confirmation confirmationPayload `json:"confirmation"`
	Metadata     map[string]string   `json:"metadata"`
	Description  string              `json:"description"`
}

func (c *Client) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (domain.CreatePaymentResponse, error) {
	if !c.configured() {
		return domain.CreatePaymentResponse{}, domain.ErrGatewayNotConfigured
	}

	idempotenceKey := uuid.NewString()

	metadata := map[string]string{"idempotenceKey": idempotenceKey}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	payload := createPaymentPayload{
		Amount:  amountPayload{Value: formatAmount(req.AmountMinor), Currency: req.Currency},
		Capture: true,
		Confirmation: confirmationPayload{
			Type:      "redirect",
			ReturnURL: req.ReturnURL,
		},
		Description: req.Description,
		Metadata:    metadata,
	}
	payload.Receipt.Customer.Email = c.receiptEmail
	payload.Receipt.Items = []receiptItemPayload{{
		Description:    truncate(req.Description, receiptItemDescriptionLimit),
		Quantity:       "1.00",
		Amount:         payload.Amount,
		VATCode:        "1",
		PaymentMode:    "full_prepayment",
		PaymentSubject: "service",
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.CreatePaymentResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return domain.CreatePaymentResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", idempotenceKey)
	httpReq.SetBasicAuth(c.shopID, c.secretKey)

	var resp paymentResponse
	if err := c.do(httpReq, &resp); err != nil {
		return domain.CreatePaymentResponse{}, err
	}
	if resp.ID == "" || resp.Confirmation.ConfirmationURL == "" {
		return domain.CreatePaymentResponse{}, fmt.Errorf("%w: incomplete create payment response", domain.ErrGateway)
	}

	c.log.Info("payment created",
		zap.String("payment_id", resp.ID),
		zap.String("amount", payload.Amount.Value),
	)

	return domain.CreatePaymentResponse{
		PaymentID:       resp.ID,
		ConfirmationURL: resp.Confirmation.ConfirmationURL,
	}, nil
}

func (c *Client) GetStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	if !c.configured() {
		return domain.PaymentStatus{}, domain.ErrGatewayNotConfigured
	}

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.PaymentStatus{}, fmt.Errorf("%w: empty payment id", domain.ErrGateway)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return domain.PaymentStatus{}, err
	}
	httpReq.SetBasicAuth(c.shopID, c.secretKey)

	var resp paymentResponse
	if err := c.do(httpReq, &resp); err != nil {
		return domain.PaymentStatus{}, err
	}

	return domain.PaymentStatus{
		PaymentID: resp.ID,
		Status:    domain.NormalizeStatus(resp.Status),
		Metadata:  resp.Metadata,
	}, nil
}

func (c *Client) do(req *http.Request, out *paymentResponse) error {
	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var apiErr struct {
			Description string `json:"description"`
		}
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Description == "" {
			apiErr.Description = fmt.Sprintf("unexpected status %d", httpResp.StatusCode)
		}
		return fmt.Errorf("%w: %s", domain.ErrGateway, apiErr.Description)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	return nil
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
