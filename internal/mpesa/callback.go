package mpesa

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"campus-store/internal/dto"
)

var ErrMalformedCallback = errors.New("callback del proveedor incompleto")

// ResultCode 0 es el único código de éxito del proveedor.
const ResultSuccess = 0

const (
	itemReceipt         = "MpesaReceiptNumber"
	itemTransactionDate = "TransactionDate"
)

type Outcome struct {
	ResultCode        int
	ResultDesc        string
	MerchantRequestID string
	CheckoutRequestID string
	Receipt           string
	// TransactionDate tal como vino (yyyyMMddHHmmss)
	TransactionDateRaw string
	TransactionDate    time.Time
}

func (o Outcome) Succeeded() bool {
	return o.ResultCode == ResultSuccess
}

// ParseOutcome extrae el resultado del callback. En un éxito, la ausencia del recibo o
// de la fecha es un error: no se aplica un pago con datos parciales.
func ParseOutcome(env dto.CallbackEnvelope) (Outcome, error) {
	cb := env.Body.StkCallback
	out := Outcome{
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
	}
	if !out.Succeeded() {
		return out, nil
	}

	if cb.CallbackMetadata == nil {
		return out, fmt.Errorf("%w: sin CallbackMetadata", ErrMalformedCallback)
	}

	receipt, ok := findItem(cb.CallbackMetadata.Item, itemReceipt)
	if !ok || receipt == "" {
		return out, fmt.Errorf("%w: falta %s", ErrMalformedCallback, itemReceipt)
	}
	date, ok := findItem(cb.CallbackMetadata.Item, itemTransactionDate)
	if !ok || date == "" {
		return out, fmt.Errorf("%w: falta %s", ErrMalformedCallback, itemTransactionDate)
	}

	ts, err := time.ParseInLocation(timestampLayout, date, eat)
	if err != nil {
		return out, fmt.Errorf("%w: %s inválido: %v", ErrMalformedCallback, itemTransactionDate, err)
	}

	out.Receipt = receipt
	out.TransactionDateRaw = date
	out.TransactionDate = ts.UTC()
	return out, nil
}

func findItem(items []dto.MetadataItem, name string) (string, bool) {
	for _, it := range items {
		if it.Name == name {
			return valueString(it.Value), true
		}
	}
	return "", false
}

// encoding/json decodifica los números como float64; 20240101120000 entra sin pérdida.
func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
