package http

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 请求参数
//
// Body: io.Reader / []byte 原样发送，其它类型按 JSON 编码
// Response: *[]byte 接收原始响应体，其它非 nil 指针按 JSON 解码
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Query      map[string]string
	Body       interface{}
	Response   interface{}

	Timeout time.Duration
}
