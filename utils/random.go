package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const lowerAlphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomToken Generate random token
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// RandomString 生成 [a-z0-9] 组成的随机串
func RandomString(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(lowerAlphanumeric)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		buf[i] = lowerAlphanumeric[n.Int64()]
	}
	return string(buf), nil
}
