// 包 normalize：将上游邮编响应体整理为统一的 LookupResult 结构
package normalize

import (
	"postcode-api/internal/postcode"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var (
	ErrMalformed = errors.New("malformed lookup response")
	ErrNoPlaces  = errors.New("lookup response has no places")
)

// 文档注释：防御式归一化
// 背景：上游字段名含空格且数值以字符串编码；使用 gjson 逐字段读取，容忍数字/字符串混用与多余字段。
// 约束：CountryCode 固定为发起查询的国家码，不从响应体解析；places 为空返回 ErrNoPlaces，由聚合器排除。
func Normalize(raw []byte, code postcode.CountryCode) (postcode.LookupResult, error) {
	var out postcode.LookupResult
	if !gjson.ValidBytes(raw) {
		return out, ErrMalformed
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return out, errors.Wrap(ErrMalformed, "body is not an object")
	}
	places := root.Get("places")
	if places.Exists() && !places.IsArray() {
		return out, errors.Wrap(ErrMalformed, "places is not an array")
	}
	for _, p := range places.Array() {
		if !p.IsObject() {
			continue
		}
		out.Places = append(out.Places, postcode.PlaceEntry{
			Name:              p.Get("place name").String(),
			Longitude:         p.Get("longitude").String(),
			Latitude:          p.Get("latitude").String(),
			State:             p.Get("state").String(),
			StateAbbreviation: p.Get("state abbreviation").String(),
		})
	}
	if len(out.Places) == 0 {
		return postcode.LookupResult{}, ErrNoPlaces
	}
	out.PostCode = root.Get("post code").String()
	out.Country = root.Get("country").String()
	if out.Country == "" {
		out.Country = postcode.CountryName(code)
	}
	out.CountryAbbreviation = root.Get("country abbreviation").String()
	out.CountryCode = code
	return out, nil
}
