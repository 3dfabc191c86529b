package api

import (
	"postcode-api/internal/autocomplete"
	"postcode-api/internal/postcode"
	"postcode-api/internal/store"
)

// 文档注释：错误返回结构（对外）
// 约束：字段稳定，前端直接展示 message。
type messageBody struct {
	Message string `json:"message"`
}

// postcodesBody：一次性面板聚合的返回
type postcodesBody struct {
	Fragment string                 `json:"fragment"`
	Results  postcode.CandidateList `json:"results"`
}

// statsBody：计数平铺在顶层，recent 为最近查询的片段
type statsBody struct {
	store.Totals
	Recent []store.RecentFragment `json:"recent"`
}

type countryBody struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type whereamiBody struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	Name    string `json:"name"`
	Source  string `json:"source"`
}

// wsIn：客户端消息；type 为 input 或 select
type wsIn struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Key   string `json:"key,omitempty"`
}

// 文档注释：服务端推送消息
// 背景：candidates 消息平铺会话状态（generation/fragment/results/open）；selected 携带被选中的结果。
type wsOut struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	*autocomplete.State
	Result  *postcode.LookupResult `json:"result,omitempty"`
	Message string                 `json:"message,omitempty"`
}
