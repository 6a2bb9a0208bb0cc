package utils

import "github.com/gin-gonic/gin"

// Business codes carried in JSONResponse.Code. The first three digits repeat the HTTP status.
const (
	CodeOK               = 0
	CodeBadRequest       = 40000
	CodeValidation       = 40001
	CodeUnauthorized     = 40100
	CodeForbidden        = 40300
	CodeNotMember        = 40301
	CodeNotFound         = 40400
	CodeTaskNotFound     = 40401
	CodeRoomNotFound     = 40402
	CodeConflict         = 40900
	CodeAlreadyCompleted = 40901
	CodeUsernameTaken    = 40902
	CodeRateLimited      = 42901
	CodeInternal         = 50000
	CodeTransaction      = 50001
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, CodeOK, "success", data)
}

// Created answers a POST that created data.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, 201, CodeOK, "created", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
