// Package sharetarget reads the parameters the operating system passes when
// a URL is shared to the app.
package sharetarget

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Query parameters of a share intent.
const (
	ParamURL       = "url"
	ParamTitle     = "title"
	ParamText      = "text"
	ParamClipboard = "clipboard"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Param is one share-target query parameter.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Prefill returns the URL to pre-fill the shorten form with. The url
// parameter wins, then the first http(s) URL in text and title. The
// clipboard content is used last, and only when it is an absolute URL.
func Prefill(query url.Values, clipboard string) string {
	if v := strings.TrimSpace(query.Get(ParamURL)); v != "" {
		return v
	}

	for _, name := range []string{ParamText, ParamTitle} {
		if m := urlPattern.FindString(query.Get(name)); m != "" {
			return m
		}
	}

	if clipboard == "" {
		clipboard = query.Get(ParamClipboard)
	}

	return absoluteURL(clipboard)
}

func absoluteURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}

	return u.String()
}

// Params returns the share-target parameters present in query, sorted by
// name.
func Params(query url.Values) []Param {
	var params []Param

	for _, name := range []string{ParamURL, ParamTitle, ParamText} {
		for _, v := range query[name] {
			params = append(params, Param{Name: name, Value: v})
		}
	}

	sort.SliceStable(params, func(i, j int) bool {
		return params[i].Name < params[j].Name
	})

	return params
}
