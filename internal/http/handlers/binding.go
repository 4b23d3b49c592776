package handlers

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listings/internal/apperr"
	"github.com/tbourn/go-listings/internal/validation"
)

// listingPayload extracts the raw value under the "listing" key from a JSON
// or urlencoded body. It returns (nil, nil) when the key is absent so that the
// validation gate can report it.
func listingPayload(c *gin.Context) (map[string]any, error) {
	ct, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))

	var body map[string]any
	switch ct {
	case gin.MIMEJSON:
		if err := c.ShouldBindJSON(&body); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, apperr.New(http.StatusRequestEntityTooLarge, "Request body too large")
			}
			return nil, apperr.BadRequest("Malformed JSON body")
		}
	default:
		if err := c.Request.ParseForm(); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, apperr.New(http.StatusRequestEntityTooLarge, "Request body too large")
			}
			return nil, apperr.BadRequest("Malformed form body")
		}
		body = parseBracketForm(c.Request.PostForm)
	}

	raw, ok := body[validation.PayloadKey]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, apperr.BadRequest(`"` + validation.PayloadKey + `" must be of type object`)
	}
	return m, nil
}

// parseBracketForm turns bracket-notation form keys into nested maps:
//
//	listing[title]=Cabin&listing[image][url]=x
//	→ {"listing": {"title": "Cabin", "image": {"url": "x"}}}
//
// Only the first value of a repeated key is used. A key whose brackets do
// not parse is kept verbatim. When a path needs a map where a scalar already
// sits, the map wins.
func parseBracketForm(form url.Values) map[string]any {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := map[string]any{}
	for _, k := range keys {
		vs := form[k]
		if len(vs) == 0 {
			continue
		}
		path := splitBracketKey(k)
		node := out
		for _, seg := range path[:len(path)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[seg] = child
			}
			node = child
		}
		leaf := path[len(path)-1]
		if _, isMap := node[leaf].(map[string]any); isMap {
			continue
		}
		node[leaf] = vs[0]
	}
	return out
}

// splitBracketKey splits "a[b][c]" into ["a", "b", "c"]. Malformed keys
// ("a[b", "a]b", "[a]") come back as a single segment.
func splitBracketKey(k string) []string {
	open := strings.IndexByte(k, '[')
	if open <= 0 {
		return []string{k}
	}
	segs := []string{k[:open]}
	rest := k[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{k}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{k}
		}
		segs = append(segs, rest[1:end])
		rest = rest[end+1:]
	}
	return segs
}
