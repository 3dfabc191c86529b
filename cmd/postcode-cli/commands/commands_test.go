package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/us/90210":
			_, _ = w.Write([]byte(`{"post code":"90210","country":"United States","country abbreviation":"US","places":[{"place name":"Beverly Hills","state abbreviation":"CA"}]}`))
		case "/gb/90210":
			_, _ = w.Write([]byte(`{"post code":"90210","country":"United Kingdom","places":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AUTOCOMPLETE_DEBOUNCE_MS", "10")
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// TestSearchCommand 测试一次性面板查询只输出有地名的国家
func TestSearchCommand(t *testing.T) {
	srv := upstream(t)
	out, err := run(t, "", "search", "--base", srv.URL, "--panel", "US,GB", "90210")
	require.NoError(t, err)
	assert.Contains(t, out, "US-90210")
	assert.Contains(t, out, "Beverly Hills, CA")
	assert.NotContains(t, out, "GB-90210")
}

func TestLookupCommand(t *testing.T) {
	srv := upstream(t)
	out, err := run(t, "", "lookup", "--base", srv.URL, "--country", "united states", "90210")
	require.NoError(t, err)
	assert.Contains(t, out, "US-90210")

	_, err = run(t, "", "lookup", "--base", srv.URL, "-c", "AU", "2000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results found for 2000 in Australia")
}

// TestTypeCommand 测试连续输入只对最后一个片段查询，并支持选择
func TestTypeCommand(t *testing.T) {
	srv := upstream(t)
	out, err := run(t, "9\n90\n902\n9021\n90210\n:select US-90210\n", "type", "--base", srv.URL, "--panel", "US,GB")
	require.NoError(t, err)
	assert.Contains(t, out, "# 90210")
	assert.Contains(t, out, "selected US-90210")
	assert.NotContains(t, out, "# 902\n")
}
