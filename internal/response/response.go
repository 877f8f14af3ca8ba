package response

import (
	"net/http"

	"billing-bridge/internal/billing"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody mirrors the legacy error JSON: a stable code plus optional raw
// vendor diagnostics under the historical field names.
type ErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Text     string `json:"text,omitempty"`
	Response *int   `json:"response,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error returns an error response
func Error(statusCode int, message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Error(statusCode, message))
}

// BillingErrorJSON sends a billing failure in the legacy error shape. The
// HTTP status follows the stable code; the numeric code in the body is what
// clients actually switch on.
func BillingErrorJSON(c *gin.Context, err error) {
	body := &ErrorBody{
		Code:    int(billing.CodeOf(err)),
		Message: err.Error(),
	}
	if berr, ok := err.(*billing.Error); ok {
		body.Message = berr.Message
		body.Text = berr.VendorMessage
		if berr.VendorCode != nil {
			v := int(*berr.VendorCode)
			body.Response = &v
		}
	}
	JSON(c, statusFor(billing.CodeOf(err)), Response{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}

func statusFor(code billing.Code) int {
	switch code {
	case billing.InvalidArguments, billing.UserCancelled:
		return http.StatusBadRequest
	case billing.NotInitialized, billing.OperationInProgress,
		billing.ItemAlreadyOwned, billing.ItemNotOwned:
		return http.StatusConflict
	case billing.ItemUnavailable:
		return http.StatusNotFound
	case billing.BadResponseFromServer, billing.UnableToInitialize:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
