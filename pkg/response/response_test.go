package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perform(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	c.Writer.WriteHeaderNow()

	var body Body
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestEnvelope(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		w, body := perform(t, func(c *gin.Context) { OK(c, gin.H{"value": 1}) })
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, body.Success)
		assert.Empty(t, body.Error)
	})

	t.Run("payment required", func(t *testing.T) {
		w, body := perform(t, func(c *gin.Context) { PaymentRequired(c, "limit reached") })
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.False(t, body.Success)
		assert.Equal(t, "limit reached", body.Error)
	})

	t.Run("not found", func(t *testing.T) {
		w, body := perform(t, func(c *gin.Context) { NotFound(c, "missing") })
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, body.Success)
	})

	t.Run("no content has empty body", func(t *testing.T) {
		w, _ := perform(t, NoContent)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Zero(t, w.Body.Len())
	})
}
