package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campus-store/internal/dto"
)

var (
	ErrUpstreamAuth     = errors.New("mpesa: no se pudo obtener el token de acceso")
	ErrUpstreamRequest  = errors.New("mpesa: fallo la solicitud al proveedor")
	ErrUpstreamRejected = errors.New("mpesa: el proveedor rechazó la solicitud")
)

const (
	transactionType = "CustomerPayBillOnline"
	timestampLayout = "20060102150405"
	tokenCacheKey   = "mpesa:access_token"
)

// Hora de Nairobi; el proveedor valida el timestamp en EAT.
var eat = time.FixedZone("EAT", 3*60*60)

// TokenCache guarda el bearer token entre llamadas. Opcional.
type TokenCache interface {
	GetToken(ctx context.Context, key string) (string, bool, error)
	SetToken(ctx context.Context, key, token string, ttl time.Duration) error
}

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
}

// Client es un wrapper sin estado sobre la API de Daraja (token + STK push).
type Client struct {
	cfg    Config
	client *http.Client
	cache  TokenCache
	signer *CallbackSigner
	now    func() time.Time
}

func NewClient(cfg Config, cache TokenCache, signer *CallbackSigner) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:  cache,
		signer: signer,
		now:    time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// GetAccessToken intercambia consumer key/secret por un bearer token de corta duración.
// No reintenta: el que llama decide.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	if c.cache != nil {
		if tok, ok, err := c.cache.GetToken(ctx, tokenCacheKey); err == nil && ok {
			return tok, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstreamAuth, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: respuesta sin access_token", ErrUpstreamAuth)
	}

	if c.cache != nil {
		if ttl := tokenTTL(tr.ExpiresIn); ttl > 0 {
			_ = c.cache.SetToken(ctx, tokenCacheKey, tr.AccessToken, ttl)
		}
	}
	return tr.AccessToken, nil
}

// tokenTTL deja un margen de 60s antes del vencimiento real.
func tokenTTL(expiresIn string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil || secs <= 60 {
		return 0
	}
	return time.Duration(secs-60) * time.Second
}

// InitiatePush envía el STK push. La respuesta es solo el acuse de recibo del proveedor,
// el resultado real llega después al callback.
func (c *Client) InitiatePush(ctx context.Context, orderID, phone string, amount int64) (*dto.StkPushAck, error) {
	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().In(eat).Format(timestampLayout)
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          Password(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL(orderID),
		AccountReference:  "Order " + orderID,
		TransactionDesc:   "Payment for order " + orderID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamRequest, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamRequest, resp.StatusCode)
	case resp.StatusCode >= 400:
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		return nil, fmt.Errorf("%w: %s %s", ErrUpstreamRejected, er.ErrorCode, er.ErrorMessage)
	}

	var ack dto.StkPushAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamRequest, err)
	}
	if ack.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s %s", ErrUpstreamRejected, ack.ResponseCode, ack.ResponseDescription)
	}
	return &ack, nil
}

// callbackURL arma {base}/{orderId}; el id en el path es la única correlación con la orden.
func (c *Client) callbackURL(orderID string) string {
	u := strings.TrimRight(c.cfg.CallbackURL, "/") + "/" + url.PathEscape(orderID)
	if c.signer.Enabled() {
		u += "?sig=" + c.signer.Sign(orderID)
	}
	return u
}

// Password = base64(shortcode + passkey + timestamp)
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}
