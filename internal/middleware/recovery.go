package middleware

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"
)

const internalError = "internal server error"

// xmlErrors is CMR's XML error envelope.
type xmlErrors struct {
	XMLName xml.Name `xml:"errors"`
	Errors  []string `xml:"error"`
}

// Recovery turns a handler panic into a 500 carrying a CMR error body: XML
// when the request accepts XML (as ingest clients do), JSON otherwise. The
// panic is logged once with its stack and request id.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				stack := make([]byte, 4096)
				stack = stack[:runtime.Stack(stack, false)]

				req := c.Request()
				log.Error("panic recovered",
					"error", fmt.Sprint(r),
					"method", req.Method,
					"path", req.URL.Path,
					"request_id", c.Response().Header().Get(RequestIDHeader),
					"stack", string(stack),
				)

				if c.Response().Committed {
					err = nil
					return
				}
				if strings.Contains(req.Header.Get(echo.HeaderAccept), "xml") {
					err = c.XML(http.StatusInternalServerError, xmlErrors{Errors: []string{internalError}})
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string][]string{
					"errors": {internalError},
				})
			}()
			return next(c)
		}
	}
}
