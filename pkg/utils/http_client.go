package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultHTTPTimeout 外部服务请求默认超时
const DefaultHTTPTimeout = 30 * time.Second

// NewHTTPClient 创建配置好超时、UA 和基础地址的 Resty 客户端
// 所有对外 REST 调用（如对象存储）都从这里创建
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Boards-Catalog/1.0")

	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return client
}
