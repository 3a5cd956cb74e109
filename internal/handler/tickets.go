package handler

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/eventdesk/internal/utils"
)

const (
	maxCodesPerRequest = 100
	defaultQRSize      = 256
)

// TicketQR renders ?code= as a PNG QR code.  ?size= sets the image width in
// pixels (64-1024).
func TicketQR(c echo.Context) error {
	code := strings.TrimSpace(c.QueryParam("code"))
	if utf8.RuneCountInString(code) != utils.ScanCodeLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code must be 16 characters"})
	}
	size := defaultQRSize
	if s := c.QueryParam("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "size must be between 64 and 1024"})
		}
		size = n
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return fail(c, err, "render qr failed")
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// TicketCodes returns ?n= freshly generated scan codes (default 1).
func TicketCodes(c echo.Context) error {
	n := 1
	if s := c.QueryParam("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxCodesPerRequest {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "n must be between 1 and 100"})
		}
		n = v
	}
	return c.JSON(http.StatusCreated, echo.Map{"codes": utils.NewScanCodes(n)})
}
