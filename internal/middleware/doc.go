// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 本地 API 沒有身份驗證，這裡只有請求日誌、指標統計與 panic 攔截。
package middleware
