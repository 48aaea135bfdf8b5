package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"CompanionGuard/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, err error) (int, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)
	var b Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return w.Code, b
}

func TestErrorMapping(t *testing.T) {
	notViewed := errors.Sentinel(errors.CodeNotYetViewed, "alert has not been viewed")
	code, body := run(t, notViewed.WithContext("alert_id", "a"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, errors.CodeNotYetViewed, body.Code)
	assert.Equal(t, "alert has not been viewed", body.Msg)

	code, _ = run(t, errors.Sentinel(errors.CodeAlertNotFound, "alert not found"))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = run(t, errors.Sentinel(errors.CodeInvalidSeverity, "bad severity"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = run(t, stderrors.New("dial tcp: refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", body.Msg)
}
