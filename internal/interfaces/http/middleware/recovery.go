package middleware

import (
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/infrastructure/errorreport"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

func Recovery(log logger.Interface) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if checkBrokenConnection(recovered) {
			log.Errorw("connection broken during request",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", recovered)
			c.Abort()
			return
		}

		httpRequest, _ := httputil.DumpRequest(c.Request, false)
		headers := strings.Split(string(httpRequest), "\r\n")
		for idx, header := range headers {
			current := strings.Split(header, ":")
			if current[0] == constants.HeaderAuthorization || current[0] == constants.HeaderStripeSignature {
				headers[idx] = current[0] + ": *"
			}
		}

		log.Errorw("panic recovered",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"request_id", c.GetString(constants.ContextKeyRequestID),
			"headers", headers,
			"error", recovered,
			"stack", string(debug.Stack()))
		errorreport.CapturePanic(c.FullPath(), recovered)

		utils.ErrorResponse(c, http.StatusInternalServerError, constants.ErrMsgInternalServerError)
	})
}

// checkBrokenConnection checks if the error is a broken connection
func checkBrokenConnection(err interface{}) bool {
	var brokenConnections = []string{
		"connection reset by peer",
		"broken pipe",
		"connection refused",
	}

	if ne, ok := err.(*net.OpError); ok {
		if se, ok := ne.Err.(*os.SyscallError); ok {
			errStr := strings.ToLower(se.Error())
			for _, s := range brokenConnections {
				if strings.Contains(errStr, s) {
					return true
				}
			}
		}
	}
	return false
}

// ErrorHandler logs the last handler error and forwards server-side failures
// to error reporting. It writes a response only when the handler did not.
func ErrorHandler(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if reportable(err) {
			appErr := errors.GetAppError(err)
			extras := map[string]interface{}{
				"request_id": c.GetString(constants.ContextKeyRequestID),
			}
			if appErr != nil && appErr.Operation != "" {
				extras["operation"] = appErr.Operation
			}
			log.Errorw("handler error occurred",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", extras["request_id"],
				"error", err)
			errorreport.Capture(c, err, extras)
		}

		if !c.Writer.Written() {
			utils.ErrorResponseWithError(c, err)
		}
	}
}

// reportable is true for failures the caller could not have caused.
func reportable(err error) bool {
	if errors.IsStorageError(err) {
		return true
	}
	appErr := errors.GetAppError(err)
	return appErr == nil || appErr.Code >= http.StatusInternalServerError
}
