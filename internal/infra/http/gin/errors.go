package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	buyrequestsapp "github.com/locomproapp/locompro/internal/app/handlers/buyrequests"
	chatsapp "github.com/locomproapp/locompro/internal/app/handlers/chats"
	offersapp "github.com/locomproapp/locompro/internal/app/handlers/offers"
	reviewsapp "github.com/locomproapp/locompro/internal/app/handlers/reviews"
	"github.com/locomproapp/locompro/internal/app/middleware"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
	"github.com/locomproapp/locompro/internal/domain/shared/storage"
)

// statusForError maps application and domain errors to HTTP status codes.
// Unknown errors fall through to 500 so internals never leak a misleading 4xx.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domainoffer.ErrNotFound),
		errors.Is(err, domainbuyrequest.ErrNotFound),
		errors.Is(err, domainchat.ErrNotFound),
		errors.Is(err, domainreview.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainbuyrequest.ErrNotOwner),
		errors.Is(err, domainoffer.ErrNotSeller),
		errors.Is(err, domainoffer.ErrOwnRequest),
		errors.Is(err, domainchat.ErrNotParticipant),
		errors.Is(err, reviewsapp.ErrNotInvolved):
		return http.StatusForbidden
	case errors.Is(err, domainoffer.ErrInvalidState),
		errors.Is(err, domainbuyrequest.ErrNotActive),
		errors.Is(err, storage.ErrConcurrentUpdate),
		errors.Is(err, offersapp.ErrDuplicateOffer),
		errors.Is(err, buyrequestsapp.ErrHasLiveOffers),
		errors.Is(err, domainchat.ErrAlreadyExists),
		errors.Is(err, reviewsapp.ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, domainoffer.ErrTitleRequired),
		errors.Is(err, domainoffer.ErrInvalidPrice),
		errors.Is(err, domainoffer.ErrImagesRequired),
		errors.Is(err, domainoffer.ErrTooManyImages),
		errors.Is(err, domainoffer.ErrInvalidDelivery),
		errors.Is(err, domainoffer.ErrReasonRequired),
		errors.Is(err, domainoffer.ErrReasonUnknown),
		errors.Is(err, domainoffer.ErrReasonDetailRequired),
		errors.Is(err, domainbuyrequest.ErrTitleRequired),
		errors.Is(err, domainbuyrequest.ErrPriceRange),
		errors.Is(err, domainbuyrequest.ErrNegativePrice),
		errors.Is(err, domainbuyrequest.ErrInvalidCondition),
		errors.Is(err, domainchat.ErrTextRequired),
		errors.Is(err, domainreview.ErrInvalidRating),
		errors.Is(err, domainreview.ErrSelfReview),
		errors.Is(err, reviewsapp.ErrNegotiationOpen),
		errors.Is(err, middleware.ErrMissingField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, offersapp.ErrUnitOfWorkRequired),
		errors.Is(err, buyrequestsapp.ErrUnitOfWorkRequired),
		errors.Is(err, chatsapp.ErrUnitOfWorkRequired),
		errors.Is(err, reviewsapp.ErrUnitOfWorkRequired):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
