// 包 postcode：邮编查询领域模型（国家码、国家面板、地点、单国结果与候选列表）
package postcode

import "strings"

// CountryCode：两位 ISO 3166-1 alpha-2 国家码，统一大写
type CountryCode string

// Lower：上游路径使用小写国家码
func (c CountryCode) Lower() string { return strings.ToLower(string(c)) }

func (c CountryCode) String() string { return string(c) }

// LookupQuery：一次防抖触发的查询；Generation 单调递增，用于丢弃过期结果
type LookupQuery struct {
	Fragment   string
	Generation uint64
}

// PlaceEntry：邮编下的一个地点，字段保持上游的字符串编码
type PlaceEntry struct {
	Name              string `json:"place name"`
	Longitude         string `json:"longitude"`
	Latitude          string `json:"latitude"`
	State             string `json:"state"`
	StateAbbreviation string `json:"state abbreviation"`
}

// 文档注释：单国查询结果
// 背景：字段命名对齐上游响应，额外附带发起查询的国家码 country_code。
// 约束：CountryCode 取自查询面板而非响应体；Places 在成功时非空。
type LookupResult struct {
	PostCode            string       `json:"post code"`
	Country             string       `json:"country"`
	CountryAbbreviation string       `json:"country abbreviation"`
	CountryCode         CountryCode  `json:"country_code"`
	Places              []PlaceEntry `json:"places"`
}

// Key：候选项标识（国家码-邮编），用于列表去重与选择
func (r LookupResult) Key() string { return string(r.CountryCode) + "-" + r.PostCode }

// CandidateList：按面板顺序排列的各国成功结果；每代整体重建，不做原地修改
type CandidateList []LookupResult

// Find：按 Key 查找候选项
func (l CandidateList) Find(key string) (LookupResult, bool) {
	for _, r := range l {
		if r.Key() == key {
			return r, true
		}
	}
	return LookupResult{}, false
}

// Countries：候选列表涉及的国家码（保持顺序）
func (l CandidateList) Countries() []CountryCode {
	out := make([]CountryCode, 0, len(l))
	for _, r := range l {
		out = append(out, r.CountryCode)
	}
	return out
}
