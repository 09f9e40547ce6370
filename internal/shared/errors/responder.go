package errors

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/order-engine/internal/shared/failure"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// Responder sends Problem Details responses.
type Responder struct {
	// BaseURI is prepended to problem type URIs if they are relative.
	BaseURI string
}

func NewResponder(baseURI string) *Responder {
	return &Responder{BaseURI: baseURI}
}

// DefaultResponder uses relative URIs for problem types.
var DefaultResponder = NewResponder("")

// Respond sends a ProblemDetail response with proper content type.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// RespondError classifies err by its failure kind and responds.
func (r *Responder) RespondError(c *gin.Context, err error) {
	r.Respond(c, FromError(err))
}

// FromError maps a failure kind to its problem. Unclassified errors become 500
// without leaking their text.
func FromError(err error) ProblemDetail {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		return problem
	}
	var stock *failure.StockError
	if errors.As(err, &stock) {
		p := ErrInsufficientStock.WithDetail(stock.Error()).
			WithExtension("productId", stock.ProductID).
			WithExtension("requested", stock.Requested)
		if stock.Available >= 0 {
			p = p.WithExtension("available", stock.Available)
		}
		return p
	}
	switch failure.Kind(err) {
	case failure.ErrValidation:
		return ErrValidation.WithDetail(err.Error())
	case failure.ErrStock:
		return ErrInsufficientStock.WithDetail(err.Error())
	case failure.ErrAuthorization:
		if errors.Is(err, failure.ErrForbidden) {
			return ErrForbidden.WithDetail(err.Error())
		}
		return ErrUnauthorized.WithDetail(err.Error())
	case failure.ErrNotFound:
		return ErrNotFound.WithDetail(err.Error())
	case failure.ErrSignature:
		return ErrInvalidSignature
	case failure.ErrReconciliation:
		return ErrReconciliation.WithDetail(err.Error())
	case failure.ErrExternalService:
		return ErrUpstream.WithDetail(err.Error())
	case failure.ErrConflict:
		return ErrConflict.WithDetail(err.Error())
	}
	return ErrInternal
}

// Respond is a convenience function using the default responder.
func Respond(c *gin.Context, problem ProblemDetail) {
	DefaultResponder.Respond(c, problem)
}

// RespondError is a convenience function using the default responder.
func RespondError(c *gin.Context, err error) {
	DefaultResponder.RespondError(c, err)
}
