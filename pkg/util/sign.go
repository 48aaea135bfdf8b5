package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign 生成 HMAC-SHA256 签名，签名数据为 方法 + 路径 + 请求体 + 时间戳
func Sign(method, path string, body []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySign compares signature with the expected one in constant time.
func VerifySign(signature, method, path string, body []byte, timestamp, secret string) bool {
	expected := Sign(method, path, body, timestamp, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
