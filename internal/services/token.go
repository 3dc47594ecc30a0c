package services

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Form field and cookie names used by the hledger-web add form.
const (
	TokenField    = "_token"
	FormIDField   = "_formid"
	FormID        = "identify-add"
	SessionCookie = "_SESSION"
)

// ExtractToken finds the value of the hidden CSRF token input in an HTML page.
func ExtractToken(body []byte) (string, bool) {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var name, value, typ string
			for _, a := range tok.Attr {
				switch strings.ToLower(a.Key) {
				case "name":
					name = a.Val
				case "value":
					value = a.Val
				case "type":
					typ = strings.ToLower(a.Val)
				}
			}
			if name == TokenField && typ == "hidden" && value != "" {
				return value, true
			}
		}
	}
}
