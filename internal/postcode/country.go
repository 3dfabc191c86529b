package postcode

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/pariz/gountries"
)

var (
	ErrUnknownCountry = errors.New("unknown country")
	ErrEmptyPanel     = errors.New("country panel is empty")
)

// 国家数据库解析成本较高，进程内只构建一次
var (
	queryOnce sync.Once
	query     *gountries.Query
)

func countries() *gountries.Query {
	queryOnce.Do(func() { query = gountries.New() })
	return query
}

// 常见别名：UK 不是 ISO 码，但用户习惯输入
var aliases = map[string]string{"UK": "GB"}

// maxFuzzyDistance：国家名模糊匹配允许的最大编辑距离
const maxFuzzyDistance = 3

// ParseCountryCode：校验并规范化两位国家码
func ParseCountryCode(s string) (CountryCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if a, ok := aliases[s]; ok {
		s = a
	}
	if len(s) != 2 {
		return "", ErrUnknownCountry
	}
	c, err := countries().FindCountryByAlpha(s)
	if err != nil {
		return "", ErrUnknownCountry
	}
	return CountryCode(c.Codes.Alpha2), nil
}

// CountryName：国家码对应的英文通用名；未知时返回国家码本身
func CountryName(code CountryCode) string {
	c, err := countries().FindCountryByAlpha(string(code))
	if err != nil {
		return string(code)
	}
	return c.Name.Common
}

// 文档注释：按国家名或国家码解析国家
// 背景：支撑“按国家名定位”的入口；依次尝试国家码、精确名称，最后按编辑距离取最近的通用名。
// 约束：模糊匹配距离超过 maxFuzzyDistance 视为未知；距离并列时按国家码字典序取第一个，保证结果稳定。
func ResolveCountry(input string) (CountryCode, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrUnknownCountry
	}
	if len(s) == 2 {
		if c, err := ParseCountryCode(s); err == nil {
			return c, nil
		}
	}
	if c, err := countries().FindCountryByName(s); err == nil {
		return CountryCode(c.Codes.Alpha2), nil
	}
	all := countries().FindAllCountries()
	codes := make([]string, 0, len(all))
	for k := range all {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	needle := strings.ToLower(s)
	best, bestD := "", maxFuzzyDistance+1
	for _, k := range codes {
		c := all[k]
		d := levenshtein.ComputeDistance(needle, strings.ToLower(c.Name.Common))
		if d < bestD {
			best, bestD = c.Codes.Alpha2, d
		}
	}
	if best == "" {
		return "", ErrUnknownCountry
	}
	return CountryCode(best), nil
}
