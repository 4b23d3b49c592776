package middleware

import (
	"mime"
	"net/http"
	"strings"
)

const (
	// MethodOverrideParam is the query/form field carrying the intended method.
	MethodOverrideParam = "_method"
	// MethodOverrideHeader is the header alternative to MethodOverrideParam.
	MethodOverrideHeader = "X-HTTP-Method-Override"
)

var overridable = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets HTML forms, which can only GET or POST, reach PUT, PATCH
// and DELETE routes. A POST carrying _method in the query string, in an
// urlencoded body, or in X-HTTP-Method-Override is re-dispatched with that
// method. Anything else passes through untouched.
//
// It wraps the engine instead of being Gin middleware because Gin picks the
// route before any middleware runs. maxBody (> 0) caps the urlencoded body
// read while looking for the field.
func MethodOverride(next http.Handler, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if m := overrideMethod(w, r, maxBody); m != "" {
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func overrideMethod(w http.ResponseWriter, r *http.Request, maxBody int64) string {
	if m := normalizeMethod(r.URL.Query().Get(MethodOverrideParam)); m != "" {
		return m
	}
	if m := normalizeMethod(r.Header.Get(MethodOverrideHeader)); m != "" {
		return m
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/x-www-form-urlencoded" || r.Body == nil {
		return ""
	}
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	// ParseForm keeps the parsed values on r, so handlers still see them.
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return normalizeMethod(r.PostForm.Get(MethodOverrideParam))
}

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if overridable[m] {
		return m
	}
	return ""
}
