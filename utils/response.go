package utils

import "github.com/gin-gonic/gin"

// Respond writes the uniform envelope {success, message?, ...payload}.
// Payload keys are merged at the top level next to success and message.
func Respond(ctx *gin.Context, status int, success bool, message string, payload gin.H) {
	body := gin.H{"success": success}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	ctx.JSON(status, body)
}

// Success answers 200 with the payload.
func Success(ctx *gin.Context, message string, payload gin.H) {
	Respond(ctx, 200, true, message, payload)
}

// Created answers 201 with the payload.
func Created(ctx *gin.Context, message string, payload gin.H) {
	Respond(ctx, 201, true, message, payload)
}

// Error answers with success=false and a message.
func Error(ctx *gin.Context, status int, message string) {
	Respond(ctx, status, false, message, nil)
}

// AbortError is Error followed by aborting the handler chain.
func AbortError(ctx *gin.Context, status int, message string) {
	Error(ctx, status, message)
	ctx.Abort()
}
