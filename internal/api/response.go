// Package api defines the JSON response envelopes and request
// conventions shared by every gateway handler.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/owasp-blt/blt-gateway/internal/router"
)

// Envelope is the success body wrapper. Data carries the resource
// payload; Pagination is present only on list responses.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination *PageInfo   `json:"pagination,omitempty"`
}

// PageInfo describes the window of a paginated list response.
type PageInfo struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewPageInfo derives a PageInfo from the request window and the total
// result count.
func NewPageInfo(page, perPage, total int) *PageInfo {
	return &PageInfo{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: page*perPage < total,
		HasPrev: page > 1,
	}
}

// JSON builds a success response with the given status.
func JSON(status int, data interface{}) (*router.Response, error) {
	return marshal(status, Envelope{Success: true, Data: data})
}

// OK builds a 200 success response.
func OK(data interface{}) (*router.Response, error) {
	return JSON(http.StatusOK, data)
}

// Created builds a 201 success response.
func Created(data interface{}) (*router.Response, error) {
	return JSON(http.StatusCreated, data)
}

// Paginated builds a 200 list response with pagination metadata.
func Paginated(data interface{}, page *PageInfo) (*router.Response, error) {
	return marshal(http.StatusOK, Envelope{Success: true, Data: data, Pagination: page})
}

// ErrorBody is the error body wrapper. Status mirrors the HTTP status
// code so clients reading only the body see the same value.
type ErrorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Error builds an error response with the status mirrored in the body.
func Error(status int, message string) (*router.Response, error) {
	body, err := json.Marshal(ErrorBody{Error: true, Message: message, Status: status})
	if err != nil {
		return nil, err
	}
	return &router.Response{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        body,
	}, nil
}

// BadRequest builds a 400 error response.
func BadRequest(message string) (*router.Response, error) {
	return Error(http.StatusBadRequest, message)
}

// NotFound builds a 404 error response.
func NotFound(message string) (*router.Response, error) {
	return Error(http.StatusNotFound, message)
}

// Unauthorized builds a 401 error response.
func Unauthorized(message string) (*router.Response, error) {
	return Error(http.StatusUnauthorized, message)
}

// BadGateway builds a 502 error response.
func BadGateway(message string) (*router.Response, error) {
	return Error(http.StatusBadGateway, message)
}

func marshal(status int, env Envelope) (*router.Response, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return &router.Response{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        body,
	}, nil
}
