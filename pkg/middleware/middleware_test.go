package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"CompanionGuard/pkg/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

func do(r http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyRejectsDuplicates(t *testing.T) {
	r := gin.New()
	r.POST("/alerts/:id/notified", IdempotencyMiddleware(IdempotencyConfig{TTL: time.Minute}), ok)

	h := map[string]string{"Idempotency-Key": "delivery-1"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/alerts/a/notified", nil, h).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/alerts/a/notified", nil, h).Code)
	// 同一个 key 作用于不同警报不冲突
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/alerts/b/notified", nil, h).Code)

	// 无 key 的请求不做去重
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/alerts/c/notified", []byte(`{"x":1}`), nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/alerts/c/notified", []byte(`{"x":1}`), nil).Code)
}

func TestIdempotencyReleasesFailedRequests(t *testing.T) {
	fail := true
	r := gin.New()
	r.POST("/screen", IdempotencyMiddleware(IdempotencyConfig{TTL: time.Minute}), func(c *gin.Context) {
		if fail {
			c.String(http.StatusInternalServerError, "boom")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	h := map[string]string{"Idempotency-Key": "m-1"}
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/screen", nil, h).Code)
	fail = false
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/screen", nil, h).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/screen", nil, h).Code)
}

func TestIdempotencyRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisIdemStore(client)

	r := gin.New()
	r.POST("/x", IdempotencyMiddleware(IdempotencyConfig{Store: store, TTL: time.Minute}), ok)
	h := map[string]string{"Idempotency-Key": "k"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/x", nil, h).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/x", nil, h).Code)

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/x", nil, h).Code)

	require.NoError(t, store.Release(context.Background(), "POST /x k"))
	assert.False(t, mr.Exists("idem:POST /x k"))
}

func TestRateLimiter(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPrometheusObserver(reg)
	rl, err := NewRateLimiter(RateLimiterConfig{Rate: "2-M", Identifier: "header", HeaderName: "X-Subject-Code", SkipPaths: []string{"/health"}}, nil)
	require.NoError(t, err)
	rl.WithObserver(obs)

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/screen", ok)
	r.GET("/health", ok)

	a := map[string]string{"X-Subject-Code": "a"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/screen", nil, a).Code)
	w := do(r, http.MethodPost, "/screen", nil, a)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(r, http.MethodPost, "/screen", nil, a)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 其他主体不受影响
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/screen", nil, map[string]string{"X-Subject-Code": "b"}).Code)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil, nil).Code)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.deny.WithLabelValues("/screen")))
	assert.Equal(t, 3.0, testutil.ToFloat64(obs.allow.WithLabelValues("/screen")))
}

func TestRateLimiterRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisLimiterStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	rl, err := NewRateLimiter(RateLimiterConfig{Rate: "1-H"}, store)
	require.NoError(t, err)

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/screen", ok)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/screen", nil, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/screen", nil, nil).Code)
}

func TestRateLimiterRejectsBadRate(t *testing.T) {
	_, err := NewRateLimiter(RateLimiterConfig{Rate: "lots"}, nil)
	assert.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	const secret = "s3cret"
	r := gin.New()
	r.POST("/alerts/:id/notified", SignVerifyMiddleware(secret, 5*time.Minute), func(c *gin.Context) {
		// 中间件需还原请求体
		var body map[string]string
		require.NoError(t, c.ShouldBindJSON(&body))
		c.String(http.StatusOK, body["reference"])
	})

	body := []byte(`{"reference":"msg-1"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := util.Sign(http.MethodPost, "/alerts/a1/notified", body, ts, secret)

	w := do(r, http.MethodPost, "/alerts/a1/notified", body, map[string]string{"Signature": sig, "X-Timestamp": ts})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "msg-1", w.Body.String())

	// 签名与路径绑定
	w = do(r, http.MethodPost, "/alerts/a2/notified", body, map[string]string{"Signature": sig, "X-Timestamp": ts})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/alerts/a1/notified", body, nil).Code)

	old := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	oldSig := util.Sign(http.MethodPost, "/alerts/a1/notified", body, old, secret)
	w = do(r, http.MethodPost, "/alerts/a1/notified", body, map[string]string{"Signature": oldSig, "X-Timestamp": old})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/alerts/a1/notified", body, map[string]string{"Signature": sig, "X-Timestamp": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLanguageMiddleware(t *testing.T) {
	var got []string
	r := gin.New()
	r.Use(LanguageMiddleware())
	r.GET("/", func(c *gin.Context) { got = Languages(c) })

	do(r, http.MethodGet, "/?lang=es", nil, map[string]string{"Accept-Language": "fr, en;q=0.5"})
	assert.Equal(t, []string{"es", "fr", "en"}, got)

	do(r, http.MethodGet, "/", nil, nil)
	assert.Empty(t, got)
}

func TestOperationLog(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&OperationLog{}))

	r := gin.New()
	r.POST("/alerts/:id/viewed", OperationLogMiddleware(db, nil), ok)
	do(r, http.MethodPost, "/alerts/a1/viewed", nil, map[string]string{
		OperatorHeader: "dr-lee",
		"User-Agent":   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})

	var logs []OperationLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "dr-lee", logs[0].Operator)
	assert.Equal(t, "/alerts/a1/viewed", logs[0].Target)
	assert.Equal(t, http.StatusOK, logs[0].Status)
	assert.Contains(t, logs[0].Browser, "Chrome")
}
