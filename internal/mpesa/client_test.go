package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokenCache struct {
	mu     sync.Mutex
	tokens map[string]string
	ttls   map[string]time.Duration
}

func newMemTokenCache() *memTokenCache {
	return &memTokenCache{tokens: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memTokenCache) GetToken(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[key]
	return t, ok, nil
}

func (m *memTokenCache) SetToken(_ context.Context, key, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	m.ttls[key] = ttl
	return nil
}

type fakeDaraja struct {
	tokenStatus int
	pushStatus  int
	pushBody    any
	tokenCalls  int
	lastAuth    string
	lastPush    stkPushPayload
	lastBearer  string
}

func (f *fakeDaraja) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		f.lastAuth = r.Header.Get("Authorization")
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		if f.tokenStatus != 0 && f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "expires_in": "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.lastBearer = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPush))
		status := f.pushStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		body := f.pushBody
		if body == nil {
			body = map[string]string{
				"MerchantRequestID":   "m-1",
				"CheckoutRequestID":   "ws_CO_1",
				"ResponseCode":        "0",
				"ResponseDescription": "Success. Request accepted for processing",
				"CustomerMessage":     "Success. Request accepted for processing",
			}
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeDaraja, cache TokenCache, signer *CallbackSigner) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "pass",
		CallbackURL:    "https://store.example/payments/callback/",
	}, cache, signer)
	c.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestGetAccessToken_SendsBasicCredentials(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f, nil, nil)

	tok, err := c.GetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("key:secret")), f.lastAuth)
}

func TestGetAccessToken_RejectedCredentials(t *testing.T) {
	f := &fakeDaraja{tokenStatus: http.StatusUnauthorized}
	c := newTestClient(t, f, nil, nil)

	_, err := c.GetAccessToken(context.Background())
	assert.True(t, errors.Is(err, ErrUpstreamAuth))
}

func TestGetAccessToken_Unreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil, nil)

	_, err := c.GetAccessToken(context.Background())
	assert.True(t, errors.Is(err, ErrUpstreamAuth))
}

func TestGetAccessToken_UsesCache(t *testing.T) {
	f := &fakeDaraja{}
	cache := newMemTokenCache()
	c := newTestClient(t, f, cache, nil)

	_, err := c.GetAccessToken(context.Background())
	require.NoError(t, err)
	_, err = c.GetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.tokenCalls)
	assert.Equal(t, 3539*time.Second, cache.ttls[tokenCacheKey])
}

func TestInitiatePush_Payload(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f, nil, nil)

	ack, err := c.InitiatePush(context.Background(), "65a1b2c3d4e5f60718293a4b", "254712345678", 2050)
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_1", ack.CheckoutRequestID)
	assert.Equal(t, "Bearer tok-1", f.lastBearer)

	p := f.lastPush
	assert.Equal(t, "174379", p.BusinessShortCode)
	// 09:00 UTC = 12:00 EAT
	assert.Equal(t, "20240101120000", p.Timestamp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379pass20240101120000")), p.Password)
	assert.Equal(t, "CustomerPayBillOnline", p.TransactionType)
	assert.Equal(t, int64(2050), p.Amount)
	assert.Equal(t, "254712345678", p.PartyA)
	assert.Equal(t, "254712345678", p.PhoneNumber)
	assert.Equal(t, "174379", p.PartyB)
	assert.Equal(t, "https://store.example/payments/callback/65a1b2c3d4e5f60718293a4b", p.CallBackURL)
}

func TestInitiatePush_SignedCallbackURL(t *testing.T) {
	f := &fakeDaraja{}
	signer := NewCallbackSigner("s3cret")
	c := newTestClient(t, f, nil, signer)

	_, err := c.InitiatePush(context.Background(), "order-1", "254712345678", 10)
	require.NoError(t, err)

	assert.Equal(t, "https://store.example/payments/callback/order-1?sig="+signer.Sign("order-1"), f.lastPush.CallBackURL)
}

func TestInitiatePush_Errors(t *testing.T) {
	tests := []struct {
		name   string
		daraja *fakeDaraja
		want   error
	}{
		{
			name:   "token rejected",
			daraja: &fakeDaraja{tokenStatus: http.StatusBadRequest},
			want:   ErrUpstreamAuth,
		},
		{
			name: "invalid phone",
			daraja: &fakeDaraja{
				pushStatus: http.StatusBadRequest,
				pushBody:   map[string]string{"requestId": "r-1", "errorCode": "400.002.02", "errorMessage": "Bad Request - Invalid PhoneNumber"},
			},
			want: ErrUpstreamRejected,
		},
		{
			name:   "provider down",
			daraja: &fakeDaraja{pushStatus: http.StatusServiceUnavailable},
			want:   ErrUpstreamRequest,
		},
		{
			name: "non zero response code",
			daraja: &fakeDaraja{
				pushBody: map[string]string{"ResponseCode": "1", "ResponseDescription": "rejected"},
			},
			want: ErrUpstreamRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.daraja, nil, nil)
			ack, err := c.InitiatePush(context.Background(), "order-1", "254712345678", 10)
			assert.Nil(t, ack)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTokenTTL(t *testing.T) {
	assert.Equal(t, 3539*time.Second, tokenTTL("3599"))
	assert.Equal(t, time.Duration(0), tokenTTL("30"))
	assert.Equal(t, time.Duration(0), tokenTTL("abc"))
}
