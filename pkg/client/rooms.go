package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/middleware"
	"roomly/pkg/model"
	"roomly/pkg/token"
	"time"
)

const callerService = "bookings"

// RoomsClient talks to the rooms service's internal endpoints. Every
// call carries a freshly issued short-lived service token and the
// request key of the originating end-user call. Responses are
// classified into the error taxonomy here so the orchestrator never
// sees raw transport errors:
//
//	transport failure / timeout / 5xx / 401 -> SERVICE_UNAVAILABLE
//	404 -> NOT_FOUND, 409 -> CONFLICT
type RoomsClient struct {
	httpClient *HttpClient
	tokenKey   string
	tokenTTL   time.Duration
}

func NewRoomsClient(baseURL string, callTimeout time.Duration, tokenKey string, tokenTTL time.Duration) *RoomsClient {
	return &RoomsClient{
		httpClient: NewHttpClient(baseURL, callTimeout),
		tokenKey:   tokenKey,
		tokenTTL:   tokenTTL,
	}
}

func (c *RoomsClient) ConfirmAvailability(ctx context.Context, roomID string, req *model.ConfirmAvailabilityRequest, requestID string) error {
	headers, err := c.serviceHeaders(requestID)
	if err != nil {
		return apperrors.Internal("Failed to issue service token", err)
	}

	path := "/api/internal/rooms/" + url.PathEscape(roomID) + "/confirm-availability"
	resp, err := c.httpClient.POST(ctx, path, req, headers)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "rooms service is temporarily unavailable", http.StatusServiceUnavailable)
	}

	return c.classify(resp)
}

func (c *RoomsClient) Release(ctx context.Context, roomID, bookingID, requestID string) error {
	headers, err := c.serviceHeaders(requestID)
	if err != nil {
		return apperrors.Internal("Failed to issue service token", err)
	}

	path := "/api/internal/rooms/" + url.PathEscape(roomID) + "/release?bookingId=" + url.QueryEscape(bookingID)
	resp, err := c.httpClient.POST(ctx, path, nil, headers)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "rooms service is temporarily unavailable", http.StatusServiceUnavailable)
	}

	return c.classify(resp)
}

func (c *RoomsClient) Recommend(ctx context.Context, start, end time.Time) ([]*model.Room, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.DateOnly))
	q.Set("end", end.Format(time.DateOnly))

	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms/recommended?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "rooms service is temporarily unavailable", http.StatusServiceUnavailable)
	}
	if err := c.classify(resp); err != nil {
		return nil, err
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, apperrors.Internal("Failed to decode rooms response", err)
	}

	var rooms []*model.Room
	if err := json.Unmarshal(wrapper.Data, &rooms); err != nil {
		return nil, apperrors.Internal("Failed to decode rooms response", err)
	}
	return rooms, nil
}

func (c *RoomsClient) serviceHeaders(requestID string) (map[string]string, error) {
	tok, err := token.Issue(c.tokenKey, callerService, c.tokenTTL)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Authorization": "Bearer " + tok,
	}
	if requestID != "" {
		headers[middleware.HeaderRequestID] = requestID
	}
	return headers, nil
}

func (c *RoomsClient) classify(resp *Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("Room")
	case resp.StatusCode == http.StatusConflict:
		msg := GetErrorMessage(resp)
		if msg == "" {
			msg = "Room is not available"
		}
		return apperrors.Conflict(msg)
	default:
		// 401/403 (credential misconfiguration) and 5xx are equally
		// indeterminate for the caller: retry later.
		return apperrors.New(apperrors.CodeUnavailable,
			fmt.Sprintf("rooms service returned status %d", resp.StatusCode),
			http.StatusServiceUnavailable)
	}
}
