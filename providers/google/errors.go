package google

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tindevelopers/gwinfra/internal/cloud"
)

// classify maps a Google API failure onto the shared error kinds. REST
// services surface *googleapi.Error with an HTTP code; the gRPC clients
// (Secret Manager, Pub/Sub) surface status codes.
func classify(err error) cloud.ErrorKind {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusConflict:
			return cloud.KindConflict
		case gerr.Code == http.StatusNotFound:
			return cloud.KindNotFound
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return cloud.KindTransient
		case gerr.Code >= 400:
			return cloud.KindPermanent
		}
		return cloud.KindUnknown
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.AlreadyExists:
			return cloud.KindConflict
		case codes.NotFound:
			return cloud.KindNotFound
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
			return cloud.KindTransient
		case codes.PermissionDenied, codes.Unauthenticated, codes.InvalidArgument, codes.FailedPrecondition:
			return cloud.KindPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return cloud.KindTransient
	}
	return cloud.KindUnknown
}

// wrapErr classifies err under the named operation. Nil stays nil.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return cloud.NewError(op, classify(err), err)
}
