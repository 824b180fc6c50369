package handler

import (
	"context"

	"connectrpc.com/connect"
	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/usecase"
)

var errProductNotFound = errors.New("product not in current results")

// toConnectError はドメインのエラーをconnectのコードに変換します
// 判別できないものは上流の障害として扱います
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	code := connect.CodeUnavailable
	switch {
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, model.ErrInvalidPriceRange),
		errors.Is(err, model.ErrEmptyMessage),
		errors.Is(err, model.ErrUnknownTenant):
		code = connect.CodeInvalidArgument
	case errors.Is(err, model.ErrLoginFailed),
		errors.Is(err, model.ErrUnauthorized),
		errors.Is(err, model.ErrNotAuthenticated):
		code = connect.CodeUnauthenticated
	case errors.Is(err, model.ErrNotConnected):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, errProductNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, usecase.ErrSuperseded):
		code = connect.CodeAborted
	case errors.Is(err, model.ErrSchema):
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
