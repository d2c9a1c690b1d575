// Package api 處理本地檢視 API 的路由。
//
// 這個包把 HTTP 請求轉換為 service 層的調用：房間提問的讀取與操作走 REST，
// 即時畫面走 /api/view/ws 的 WebSocket。
package api
