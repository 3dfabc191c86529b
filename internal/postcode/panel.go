package postcode

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultPanelCodes：默认聚合面板（顺序即候选列表顺序）
var DefaultPanelCodes = []string{"US", "GB", "CA", "AU", "DE", "FR", "IT", "ES"}

// 文档注释：国家面板
// 背景：聚合查询时并发访问的固定国家集合；顺序决定候选列表顺序，与网络返回先后无关。
// 约束：构建后不可变；国家码去重（保留首次出现位置）且必须是合法 ISO 码。
type Panel struct {
	codes []CountryCode
}

// NewPanel：校验、规范化并去重
func NewPanel(codes []string) (Panel, error) {
	seen := make(map[CountryCode]bool, len(codes))
	out := make([]CountryCode, 0, len(codes))
	for _, s := range codes {
		if strings.TrimSpace(s) == "" {
			continue
		}
		c, err := ParseCountryCode(s)
		if err != nil {
			return Panel{}, errors.Wrapf(err, "panel entry %q", s)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return Panel{}, ErrEmptyPanel
	}
	return Panel{codes: out}, nil
}

// ParsePanel：解析逗号分隔的面板配置，空串回退默认面板
func ParsePanel(s string) (Panel, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultPanel(), nil
	}
	return NewPanel(strings.Split(s, ","))
}

func DefaultPanel() Panel {
	out := make([]CountryCode, len(DefaultPanelCodes))
	for i, s := range DefaultPanelCodes {
		out[i] = CountryCode(s)
	}
	return Panel{codes: out}
}

// Codes：返回副本，调用方修改不影响面板
func (p Panel) Codes() []CountryCode {
	out := make([]CountryCode, len(p.codes))
	copy(out, p.codes)
	return out
}

func (p Panel) Len() int { return len(p.codes) }

func (p Panel) Contains(c CountryCode) bool {
	for _, x := range p.codes {
		if x == c {
			return true
		}
	}
	return false
}

func (p Panel) String() string {
	ss := make([]string, len(p.codes))
	for i, c := range p.codes {
		ss[i] = string(c)
	}
	return strings.Join(ss, ",")
}
