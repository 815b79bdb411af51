package invitelinks

import (
	"errors"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// JoinURL is the page a recipient opens to redeem token.
func JoinURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(token)
}

// QRCode renders content as a PNG of size pixels; zero means 512.
func QRCode(content string, size int) ([]byte, error) {
	if size == 0 {
		size = 512
	}
	if size < 128 || size > 2048 {
		return nil, errors.New("invalid size: must be between 128 and 2048")
	}

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}
