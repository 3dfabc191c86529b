package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"postcode-api/internal/logger"
	"postcode-api/internal/postcode"
	"postcode-api/internal/zippo"
)

const (
	msgMissing = "Missing query or country parameter"
	msgFailed  = "Failed to fetch location data"
)

// cleanQuery：去除首尾空白后仅保留 ASCII 字母数字、空白与连字符
func cleanQuery(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '\t':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// 文档注释：单国代理查询
// 背景：按用户选择的国家转发一次上游查询，成功时原样返回上游响应体，便于前端直接渲染。
// 约束：清洗后为空（如 "!!!"）视为缺参返回 400，不转发上游；国家参数可为国家码或国家名，无法识别时按未命中处理；上游错误细节只记日志不外泄。
func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	query := cleanQuery(qs.Get("query"))
	country := strings.TrimSpace(qs.Get("country"))
	if query == "" || country == "" {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: msgMissing})
		return
	}
	notFound := messageBody{Message: "No results found for " + query + " in the selected country"}
	code, err := postcode.ResolveCountry(country)
	if err != nil {
		logger.L().Debug("search_unknown_country", "country", country)
		writeJSON(w, http.StatusNotFound, notFound)
		return
	}
	body, err := h.Zippo.Fetch(r.Context(), code, query)
	switch {
	case errors.Is(err, zippo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, notFound)
		return
	case err != nil:
		logger.L().Error("search_upstream_error", "country", string(code), "query", query, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: msgFailed})
		return
	}
	h.record(r, query, 1)
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
