package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shantivaas/rental/internal/interfaces/http/dto"
)

type markRequest struct {
	TenantID    string          `json:"tenant_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"gt=0"`
	PaymentMode string          `json:"payment_mode" binding:"required,manual_payment_mode"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req markRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount": req.Amount.String()})
	})
	return router
}

func postJSON(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidation_AcceptsValidBody(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"tenant_id":"4d3f1c52-8c39-4f0e-9a53-2a7c0b8f1e11","amount":4500.50,"payment_mode":"CASH"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "4500.5")
}

func TestValidation_ReportsFieldsByJSONName(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"tenant_id":"not-a-uuid","amount":0,"payment_mode":"ONLINE_GATEWAY"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	fields := make(map[string]string)
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid UUID format", fields["tenant_id"])
	assert.Equal(t, "Must be greater than 0", fields["amount"])
	assert.Equal(t, "Must be one of: CASH BANK_TRANSFER UPI_MANUAL", fields["payment_mode"])
}

func TestValidation_NegativeAmount(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"tenant_id":"4d3f1c52-8c39-4f0e-9a53-2a7c0b8f1e11","amount":"-10","payment_mode":"UPI_MANUAL"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"amount"`)
}

func TestValidation_MalformedJSON(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"tenant_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestSetupValidator_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		SetupValidator()
		SetupValidator()
	})
}
