// 包 geoip：基于 GeoLite2 国家库解析访问者所在国家，用于单国查询的默认国家
package geoip

import (
	"net"
	"strings"

	"postcode-api/internal/logger"
	"postcode-api/internal/postcode"

	"github.com/oschwald/geoip2-golang"
)

// 文档注释：访问者国家解析器
// 背景：前端按国家查询需要一个合理的默认国家；有 mmdb 时按访问者 IP 解析，否则回退配置的默认国家。
// 约束：r 为 nil 或解析失败均回退 fallback；私有地址与非法 IP 不查库。
type Resolver struct {
	db       *geoip2.Reader
	fallback postcode.CountryCode
}

// Open：path 为空时返回仅含回退值的解析器
func Open(path string, fallback postcode.CountryCode) (*Resolver, error) {
	r := &Resolver{fallback: fallback}
	if path == "" {
		return r, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return r, err
	}
	r.db = db
	return r, nil
}

func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Country：返回国家码以及是否来自数据库命中
func (r *Resolver) Country(ip string) (postcode.CountryCode, bool) {
	if r == nil {
		return "", false
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if r.db == nil || parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return r.fallback, false
	}
	rec, err := r.db.Country(parsed)
	if err != nil || rec.Country.IsoCode == "" {
		logger.L().Debug("geoip_miss", "ip", ip, "err", err)
		return r.fallback, false
	}
	c, err := postcode.ParseCountryCode(rec.Country.IsoCode)
	if err != nil {
		return r.fallback, false
	}
	return c, true
}
