package utils

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

var (
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMu     sync.Mutex
	letters    = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
)

// RandString 生成指定长度的随机字符串，用于埋点会话ID等非安全场景
func RandString(n int) string {
	if n <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(n)

	randMu.Lock()
	for i := 0; i < n; i++ {
		sb.WriteRune(letters[randSource.Intn(len(letters))])
	}
	randMu.Unlock()

	return sb.String()
}

// MaskToken 对日志中出现的令牌脱敏，只保留前几位
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
