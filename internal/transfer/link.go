package transfer

import (
	"fmt"
	"net/url"
	"strings"
)

const idParam = "id"

// BuildURL returns base with the transfer id set as the id query parameter.
func BuildURL(base, id string) (string, error) {
	u, err := parseAbsolute(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(idParam, id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseURL extracts the transfer id from decoded QR text. valid, when set,
// rejects ids the exchange could never have minted.
func ParseURL(text string, valid func(string) bool) (string, error) {
	u, err := parseAbsolute(strings.TrimSpace(text))
	if err != nil {
		return "", NewError(KindInvalidQRPayload, err)
	}

	id := u.Query().Get(idParam)
	if id == "" {
		return "", NewError(KindInvalidQRPayload, fmt.Errorf("url has no %s parameter", idParam))
	}
	if valid != nil && !valid(id) {
		return "", NewError(KindInvalidQRPayload, fmt.Errorf("malformed transfer id %q", id))
	}
	return id, nil
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("not an absolute http(s) url: %q", raw)
	}
	return u, nil
}
