package client

import (
	"context"
	"net/url"

	"nailbook/pkg/model"
)

// SchedulingClient calls the scheduling service's HTTP API.
type SchedulingClient struct {
	http *HttpClient
}

func NewSchedulingClient(baseURL string) *SchedulingClient {
	return &SchedulingClient{http: NewHttpClient(baseURL)}
}

func (c *SchedulingClient) HTTP() *HttpClient {
	return c.http
}

func (c *SchedulingClient) CreateSlot(ctx context.Context, slot *model.Slot) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/slots", slot)
}

func (c *SchedulingClient) CreateSlotsBulk(ctx context.Context, req *model.BulkSlotRequest) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/slots/bulk", req)
}

func (c *SchedulingClient) GetSlot(ctx context.Context, id string) (*Response, error) {
	return c.http.GET(ctx, "/api/v1/slots/id/"+url.PathEscape(id))
}

func (c *SchedulingClient) SearchSlots(ctx context.Context, resourceID, date string) (*Response, error) {
	q := url.Values{}
	q.Set("resource_id", resourceID)
	q.Set("date", date)
	return c.http.GET(ctx, "/api/v1/slots/search?"+q.Encode())
}

func (c *SchedulingClient) UpdateSlot(ctx context.Context, id string, update *model.SlotUpdate) (*Response, error) {
	return c.http.PATCH(ctx, "/api/v1/slots/id/"+url.PathEscape(id), update)
}

func (c *SchedulingClient) DeleteSlot(ctx context.Context, id string) (*Response, error) {
	return c.http.DELETE(ctx, "/api/v1/slots/id/"+url.PathEscape(id))
}

func (c *SchedulingClient) CreateBlockedDate(ctx context.Context, b *model.BlockedDateRequest) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/blocked-dates", b)
}

func (c *SchedulingClient) ListBlockedDates(ctx context.Context, from, to string) (*Response, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return c.http.GET(ctx, "/api/v1/blocked-dates?"+q.Encode())
}

func (c *SchedulingClient) DeleteBlockedDate(ctx context.Context, id string) (*Response, error) {
	return c.http.DELETE(ctx, "/api/v1/blocked-dates/id/"+url.PathEscape(id))
}

func (c *SchedulingClient) GetAvailability(ctx context.Context, resourceID *string, fromDate string) (*Response, error) {
	q := url.Values{}
	if resourceID != nil {
		q.Set("resource_id", *resourceID)
	}
	if fromDate != "" {
		q.Set("from_date", fromDate)
	}
	return c.http.GET(ctx, "/api/v1/availability?"+q.Encode())
}

func (c *SchedulingClient) ResolveChain(ctx context.Context, req *model.ResolveRequest) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/chains/resolve", req)
}

func (c *SchedulingClient) Reserve(ctx context.Context, req *model.ReservationRequest, idempotencyKey string) (*Response, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{HeaderIdempotencyKey: idempotencyKey}
	}
	return c.http.POSTWithHeaders(ctx, "/api/v1/reservations", req, headers)
}

func (c *SchedulingClient) GetBooking(ctx context.Context, id string) (*Response, error) {
	return c.http.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
}

func (c *SchedulingClient) Release(ctx context.Context, bookingID string) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/bookings/id/"+url.PathEscape(bookingID)+"/release", nil)
}

func (c *SchedulingClient) Cancel(ctx context.Context, bookingID string, req *model.CancelRequest) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/bookings/id/"+url.PathEscape(bookingID)+"/cancel", req)
}

func (c *SchedulingClient) Advance(ctx context.Context, bookingID string, req *model.AdvanceRequest) (*Response, error) {
	return c.http.POST(ctx, "/api/v1/bookings/id/"+url.PathEscape(bookingID)+"/advance", req)
}
